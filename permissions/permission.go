package permissions

import (
	_ "embed"
	"encoding/json"
	"slices"

	"github.com/rs/zerolog/log"
)

//go:embed permissions.json
var permissionsData []byte

// Permission holds the access rule of one route pattern. Permissions lists the allowed roles;
// an empty list admits any caller that got past authentication.
type Permission struct {
	Permissions []string `json:"permissions"`
	Path        string   `json:"path"`
	Method      string   `json:"method"`
	Skip        bool     `json:"skip"`
	Optional    bool     `json:"optional"`
}

type PermissionData struct {
	Endpoints []Permission `json:"endpoints"`
	Skip      bool         `json:"skip"`
}

func (r *PermissionData) FindPermissions(path, method string) (Permission, bool) {
	idx := slices.IndexFunc(r.Endpoints, func(rp Permission) bool {
		return rp.Path == path && rp.Method == method
	})

	if idx == -1 {
		return Permission{}, false
	}

	return r.Endpoints[idx], true
}

// Allows reports whether role may call the endpoint.
func (p Permission) Allows(role string) bool {
	return len(p.Permissions) == 0 || slices.Contains(p.Permissions, role)
}

func Parse(data []byte) (*PermissionData, error) {
	var permissions PermissionData

	if err := json.Unmarshal(data, &permissions); err != nil {
		return nil, err //nolint:wrapcheck
	}

	return &permissions, nil
}

func Get() *PermissionData {
	permissions, err := Parse(permissionsData)
	if err != nil {
		log.Err(err).Msg("Failed to decode embedded permissions")

		return nil
	}

	log.Info().Int("endpoints", len(permissions.Endpoints)).Msg("Successfully loaded embedded permissions")

	return permissions
}
