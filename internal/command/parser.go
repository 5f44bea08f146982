// Package command turns natural-language administration commands into a
// closed set of intent variants. Parsing is pattern matching over four
// fixed forms; the authorization core only ever sees the structured
// intents the executor produces from them.
package command

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/accesshub/accesshub/internal/platform/httpx"
)

// Intent is one of the four supported command variants.
type Intent interface {
	isIntent()
}

// AssignPermission grants an existing permission to an existing role.
type AssignPermission struct {
	RoleName       string
	PermissionName string
}

// CreatePermission creates a new named permission.
type CreatePermission struct {
	PermissionName string
}

// CreateRole creates a new named role.
type CreateRole struct {
	RoleName string
}

// RemovePermission revokes a permission from a role.
type RemovePermission struct {
	RoleName       string
	PermissionName string
}

func (AssignPermission) isIntent() {}
func (CreatePermission) isIntent() {}
func (CreateRole) isIntent()       {}
func (RemovePermission) isIntent() {}

var (
	assignPattern     = regexp.MustCompile(`(?i)give\s+(?:the\s+)?role\s+['"]([^'"]+)['"]\s+(?:the\s+)?permission\s+(?:to\s+)?['"]([^'"]+)['"]`)
	createPermPattern = regexp.MustCompile(`(?i)create\s+(?:a\s+)?(?:new\s+)?permission\s+(?:called\s+)?['"]([^'"]+)['"]`)
	createRolePattern = regexp.MustCompile(`(?i)create\s+(?:a\s+)?(?:new\s+)?role\s+(?:called\s+)?['"]([^'"]+)['"]`)
	removePattern     = regexp.MustCompile(`(?i)remove\s+(?:the\s+)?permission\s+['"]([^'"]+)['"]\s+from\s+(?:the\s+)?role\s+['"]([^'"]+)['"]`)
)

// ErrUnparseable is returned when no pattern matches; its message lists
// the supported forms for the UI.
var ErrUnparseable = fmt.Errorf("%w: could not parse command; supported formats: "+
	`"Give the role 'X' the permission to 'Y'", `+
	`"Create a new permission called 'X'", `+
	`"Create a new role called 'X'", `+
	`"Remove permission 'X' from role 'Y'"`, httpx.ErrValidation)

// Parse matches input against the supported patterns and returns the
// corresponding intent. Quoted names keep their original case; matching
// of the surrounding words is case-insensitive.
func Parse(input string) (Intent, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("%w: command is required", httpx.ErrValidation)
	}

	if m := assignPattern.FindStringSubmatch(input); m != nil {
		return AssignPermission{RoleName: m[1], PermissionName: m[2]}, nil
	}
	if m := removePattern.FindStringSubmatch(input); m != nil {
		return RemovePermission{PermissionName: m[1], RoleName: m[2]}, nil
	}
	if m := createPermPattern.FindStringSubmatch(input); m != nil {
		return CreatePermission{PermissionName: m[1]}, nil
	}
	if m := createRolePattern.FindStringSubmatch(input); m != nil {
		return CreateRole{RoleName: m[1]}, nil
	}
	return nil, ErrUnparseable
}
