package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/srujanaA02/multi-tenant-saas/internal/tracker"
)

func (c *cli) dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show project stats and recent projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.guard(); err != nil {
				return err
			}
			d := c.app.Dashboard()
			defer d.Close()
			err := d.Load(cmd.Context())
			fmt.Fprint(cmd.OutOrStdout(), renderDashboard(d.State()))
			return err
		},
	}
}

func (c *cli) projectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List and manage projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.guard(); err != nil {
				return err
			}
			p := c.app.Projects()
			defer p.Close()
			if err := p.Load(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderProjects(p.List()))
			return nil
		},
	}

	var description string
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.guard(); err != nil {
				return err
			}
			p := c.app.Projects()
			defer p.Close()
			return p.Create(cmd.Context(), args[0], description)
		},
	}
	create.Flags().StringVar(&description, "description", "", "project description")

	remove := &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project and its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.guard(); err != nil {
				return err
			}
			p := c.app.Projects()
			defer p.Close()
			return p.Delete(cmd.Context(), args[0])
		},
	}

	cmd.AddCommand(create, remove)
	return cmd
}

func (c *cli) tasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks <project-id>",
		Short: "Show a project's tasks and progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.guard(); err != nil {
				return err
			}
			d := c.app.ProjectDetails(args[0])
			defer d.Close()
			if err := d.Load(cmd.Context()); err != nil {
				return err
			}
			project, _ := d.Project()
			fmt.Fprint(cmd.OutOrStdout(), renderTasks(project, d.Tasks(), d.Progress()))
			return nil
		},
	}

	var status string
	add := &cobra.Command{
		Use:   "add <project-id> <title>",
		Short: "Add a task to a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.guard(); err != nil {
				return err
			}
			d := c.app.ProjectDetails(args[0])
			defer d.Close()
			return d.CreateTask(cmd.Context(), args[1], tracker.TaskStatus(status))
		},
	}
	add.Flags().StringVar(&status, "status", string(tracker.TaskTodo), "initial status (todo, in_progress, done)")

	setStatus := &cobra.Command{
		Use:   "status <project-id> <task-id> <status>",
		Short: "Change a task's status",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.guard(); err != nil {
				return err
			}
			d := c.app.ProjectDetails(args[0])
			defer d.Close()
			if err := d.Load(cmd.Context()); err != nil {
				return err
			}
			return d.SetStatus(cmd.Context(), args[1], tracker.TaskStatus(args[2]))
		},
	}

	remove := &cobra.Command{
		Use:   "delete <project-id> <task-id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.guard(); err != nil {
				return err
			}
			d := c.app.ProjectDetails(args[0])
			defer d.Close()
			return d.DeleteTask(cmd.Context(), args[1])
		},
	}

	cmd.AddCommand(add, setStatus, remove)
	return cmd
}

func (c *cli) usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List and manage team members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.guard(); err != nil {
				return err
			}
			u := c.app.Users()
			defer u.Close()
			if err := u.Load(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderMembers(u.Members(), u.CanRemove))
			return nil
		},
	}

	var req tracker.CreateUserRequest
	var role string
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a team member (tenant admins only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.guard(); err != nil {
				return err
			}
			u := c.app.Users()
			defer u.Close()
			req.Role = tracker.Role(role)
			return u.Add(cmd.Context(), req)
		},
	}
	add.Flags().StringVar(&req.FullName, "name", "", "full name")
	add.Flags().StringVar(&req.Email, "email", "", "email")
	add.Flags().StringVar(&req.Password, "password", "", "initial password")
	add.Flags().StringVar(&role, "role", string(tracker.RoleUser), "role (user, tenant_admin)")
	for _, f := range []string{"name", "email", "password"} {
		_ = add.MarkFlagRequired(f)
	}

	remove := &cobra.Command{
		Use:   "remove <user-id>",
		Short: "Remove a team member (tenant admins only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.guard(); err != nil {
				return err
			}
			u := c.app.Users()
			defer u.Close()
			return u.Remove(cmd.Context(), args[0])
		},
	}

	cmd.AddCommand(add, remove)
	return cmd
}
