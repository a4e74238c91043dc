package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Domain errors
var (
	ErrDuplicateCode       = errors.New("code already exists")
	ErrDuplicateName       = errors.New("role name already exists")
	ErrDuplicatePermission = errors.New("permission already exists for this resource and action")
	ErrUnknownReference    = errors.New("referenced resource or action does not exist")
	ErrMalformedCode       = errors.New("permission code must be of the form \"resource:action\"")
	ErrResourceNotFound    = errors.New("resource not found")
	ErrActionNotFound      = errors.New("action not found")
	ErrPermissionNotFound  = errors.New("permission not found")
	ErrRoleNotFound        = errors.New("role not found")
	ErrResourceInUse       = errors.New("resource is referenced by existing permissions")
	ErrActionInUse         = errors.New("action is referenced by existing permissions")
)

// CodeSeparator joins a resource code and an action code into a permission code.
const CodeSeparator = ":"

// Resource identifies a protected entity class in the application
// (e.g. "projects"). The code is the stable identifier used inside
// permission codes; the description is for humans.
type Resource struct {
	Code        string
	Description string
	CreatedAt   time.Time
}

// Action identifies an operation verb (e.g. "read").
type Action struct {
	Code        string
	Description string
	CreatedAt   time.Time
}

// Permission is an atomic grantable right: one action on one resource.
// The (resource, action) pair is unique across all permissions.
type Permission struct {
	ID           string
	ResourceCode string
	ActionCode   string
	CreatedAt    time.Time
}

// Code returns the canonical "resource:action" representation.
// It is both the display form and the comparison key used by the resolver.
func (p Permission) Code() string {
	return p.ResourceCode + CodeSeparator + p.ActionCode
}

// ParseCode splits a canonical permission code into its resource and action
// parts. The code must contain exactly one separator with non-empty halves;
// anything else is ErrMalformedCode.
func ParseCode(code string) (resource, action string, err error) {
	parts := strings.Split(code, CodeSeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedCode, code)
	}
	return parts[0], parts[1], nil
}

// Role is a named bundle of permissions representing a job function.
// Roles do not inherit from other roles; grants are purely additive.
type Role struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserRole links a principal to a role. A given (user, role) pair
// exists at most once.
type UserRole struct {
	UserID    string
	RoleID    string
	GrantedAt time.Time
	GrantedBy string
}

// CatalogRepository persists resources and actions, the reference data
// permissions are built from.
type CatalogRepository interface {
	CreateResource(ctx context.Context, resource *Resource) error
	GetResource(ctx context.Context, code string) (*Resource, error)
	ListResources(ctx context.Context) ([]*Resource, error)
	DeleteResource(ctx context.Context, code string) error

	CreateAction(ctx context.Context, action *Action) error
	GetAction(ctx context.Context, code string) (*Action, error)
	ListActions(ctx context.Context) ([]*Action, error)
	DeleteAction(ctx context.Context, code string) error
}

// PermissionRepository persists permissions.
type PermissionRepository interface {
	Create(ctx context.Context, permission *Permission) error
	GetByID(ctx context.Context, id string) (*Permission, error)
	GetByPair(ctx context.Context, resourceCode, actionCode string) (*Permission, error)

	// List returns all permissions in insertion order. The order is stable
	// for display purposes only and carries no semantics.
	List(ctx context.Context) ([]*Permission, error)

	Delete(ctx context.Context, id string) error

	// CountByResource and CountByAction report how many permissions
	// reference a catalog entry, for reject-if-referenced deletes.
	CountByResource(ctx context.Context, resourceCode string) (int, error)
	CountByAction(ctx context.Context, actionCode string) (int, error)
}

// RoleRepository persists roles and the role→permission adjacency.
type RoleRepository interface {
	Create(ctx context.Context, role *Role) error
	GetByID(ctx context.Context, id string) (*Role, error)
	GetByName(ctx context.Context, name string) (*Role, error)
	List(ctx context.Context) ([]*Role, error)
	Delete(ctx context.Context, id string) error

	// AddPermission links a permission to a role. Linking an already
	// linked permission is a no-op.
	AddPermission(ctx context.Context, roleID, permissionID string) error

	// RemovePermission unlinks a permission from a role. Removing an
	// absent link is a no-op.
	RemovePermission(ctx context.Context, roleID, permissionID string) error

	// Permissions returns all permissions linked to a role.
	Permissions(ctx context.Context, roleID string) ([]*Permission, error)

	// RemovePermissionEverywhere unlinks a permission from every role
	// that references it. Used when a permission is deleted.
	RemovePermissionEverywhere(ctx context.Context, permissionID string) error
}

// AssignmentRepository persists the user→role adjacency.
type AssignmentRepository interface {
	// Assign creates a user-role link. Assigning an existing link is a
	// no-op.
	Assign(ctx context.Context, link *UserRole) error

	// Unassign removes a user-role link. Removing an absent link is a
	// no-op.
	Unassign(ctx context.Context, userID, roleID string) error

	// RolesOf returns all roles currently assigned to a user.
	RolesOf(ctx context.Context, userID string) ([]*Role, error)

	// UnassignAllForRole removes every user's link to a role. Used when
	// a role is deleted.
	UnassignAllForRole(ctx context.Context, roleID string) error
}
