package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/legalbot-guard-api/internal/models"
	"github.com/noah-isme/legalbot-guard-api/internal/utils"
)

// Capability names one privileged operation.
type Capability string

const (
	CapActivityRecord  Capability = "activity:record"
	CapActivityRead    Capability = "activity:read"
	CapBanWrite        Capability = "ban:write"
	CapBanRead         Capability = "ban:read"
	CapSuspiciousRead  Capability = "suspicious:read"
	CapSuspiciousWrite Capability = "suspicious:write"
	CapBackupExport    Capability = "backup:export"
	CapAlertsStream    Capability = "alerts:stream"
)

// RoleCapabilities is the single authorization table for the API.
var RoleCapabilities = map[models.Role][]Capability{
	models.RoleAdmin: {
		CapActivityRecord, CapActivityRead,
		CapBanWrite, CapBanRead,
		CapSuspiciousRead, CapSuspiciousWrite,
		CapBackupExport, CapAlertsStream,
	},
	models.RoleEditor: {
		CapActivityRecord, CapActivityRead,
		CapBanRead,
		CapSuspiciousRead, CapSuspiciousWrite,
		CapAlertsStream,
	},
	models.RoleUser: {
		CapActivityRecord,
	},
}

// Allows reports whether the role holds the capability.
func Allows(role models.Role, capability Capability) bool {
	for _, granted := range RoleCapabilities[role] {
		if granted == capability {
			return true
		}
	}
	return false
}

// Role returns the caller's resolved role.
func Role(c *fiber.Ctx) models.Role {
	role, _ := models.ParseRole(normalizeRoleValue(c.Locals(LocalUserRole)))
	return role
}

// RequireCapability rejects callers whose role lacks the capability.
func RequireCapability(capability Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if UserID(c) == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		if !Allows(Role(c), capability) {
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", fiber.Map{
				"required": string(capability),
			})
		}
		return c.Next()
	}
}

func normalizeRoleValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case fmt.Stringer:
		return strings.ToLower(strings.TrimSpace(v.String()))
	default:
		if value == nil {
			return ""
		}
		return strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", value)))
	}
}
