package viewmodel

import (
	"context"
	"fmt"
	"strings"

	"github.com/srujanaA02/multi-tenant-saas/internal/mutation"
	"github.com/srujanaA02/multi-tenant-saas/internal/tracker"
)

// Entity names a list the client can add to or remove from.
type Entity string

const (
	EntityProject Entity = "project"
	EntityTask    Entity = "task"
	EntityMember  Entity = "member"
)

// EntitiesAPI is every create and delete endpoint.
type EntitiesAPI interface {
	ProjectsAPI
	TasksAPI
	UsersAPI
}

func createProject(a ProjectsAPI, req tracker.CreateProjectRequest) (mutation.ListMutation, error) {
	if strings.TrimSpace(req.Name) == "" {
		return mutation.ListMutation{}, ErrNameRequired
	}
	return mutation.ListMutation{
		Kind: tracker.KindCreateProject,
		Call: func(ctx context.Context) error {
			_, err := a.CreateProject(ctx, req)
			return err
		},
		SuccessMessage: "Project Created Successfully!",
		FailureMessage: "Error creating project",
	}, nil
}

func deleteProject(a ProjectsAPI, id string) mutation.ListMutation {
	return mutation.ListMutation{
		Kind:           tracker.KindDeleteProject,
		TargetID:       id,
		Call:           func(ctx context.Context) error { return a.DeleteProject(ctx, id) },
		SuccessMessage: "Project Deleted",
		FailureMessage: "Failed to delete project",
	}
}

func createTask(a TasksAPI, req tracker.CreateTaskRequest) (mutation.ListMutation, error) {
	if strings.TrimSpace(req.Title) == "" {
		return mutation.ListMutation{}, ErrTitleRequired
	}
	if req.Status == "" {
		req.Status = tracker.TaskTodo
	}
	return mutation.ListMutation{
		Kind: tracker.KindCreateTask,
		Call: func(ctx context.Context) error {
			_, err := a.CreateTask(ctx, req)
			return err
		},
		SuccessMessage: "Task added successfully",
		FailureMessage: "Failed to create task",
	}, nil
}

func deleteTask(a TasksAPI, id string) mutation.ListMutation {
	return mutation.ListMutation{
		Kind:           tracker.KindDeleteTask,
		TargetID:       id,
		Call:           func(ctx context.Context) error { return a.DeleteTask(ctx, id) },
		SuccessMessage: "Task deleted",
		FailureMessage: "Failed to delete task",
	}
}

func addMember(a UsersAPI, req tracker.CreateUserRequest) mutation.ListMutation {
	if req.Role == "" {
		req.Role = tracker.RoleUser
	}
	return mutation.ListMutation{
		Kind: tracker.KindAddMember,
		Call: func(ctx context.Context) error {
			_, err := a.CreateUser(ctx, req)
			return err
		},
		SuccessMessage:      "Team member added successfully",
		FailureMessage:      "Failed to add user",
		PreferServerMessage: true,
	}
}

func removeMember(a UsersAPI, id string) mutation.ListMutation {
	return mutation.ListMutation{
		Kind:                tracker.KindRemoveMember,
		TargetID:            id,
		Call:                func(ctx context.Context) error { return a.DeleteUser(ctx, id) },
		SuccessMessage:      "User removed successfully",
		FailureMessage:      "Failed to remove user",
		PreferServerMessage: true,
	}
}

// CreateMutation builds the confirmed mutation for a create payload:
// tracker.CreateProjectRequest, tracker.CreateTaskRequest or
// tracker.CreateUserRequest.
func CreateMutation(a EntitiesAPI, payload any) (mutation.ListMutation, error) {
	switch req := payload.(type) {
	case tracker.CreateProjectRequest:
		return createProject(a, req)
	case tracker.CreateTaskRequest:
		return createTask(a, req)
	case tracker.CreateUserRequest:
		return addMember(a, req), nil
	}
	return mutation.ListMutation{}, fmt.Errorf("unsupported create payload %T", payload)
}

// DeleteMutation builds the confirmed mutation that removes id from kind.
func DeleteMutation(a EntitiesAPI, kind Entity, id string) (mutation.ListMutation, error) {
	if id == "" {
		return mutation.ListMutation{}, fmt.Errorf("delete %s: empty id", kind)
	}
	switch kind {
	case EntityProject:
		return deleteProject(a, id), nil
	case EntityTask:
		return deleteTask(a, id), nil
	case EntityMember:
		return removeMember(a, id), nil
	}
	return mutation.ListMutation{}, fmt.Errorf("unsupported entity %q", kind)
}
