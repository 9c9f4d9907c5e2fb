// AngelaMos | 2026
// dto.go

package settings

import "time"

type UpdateSettingRequest struct {
	Value string `json:"value" validate:"required,max=64"`
}

type SettingResponse struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	Category  string    `json:"category"`
	Version   int       `json:"version"`
	UpdatedBy *string   `json:"updated_by,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UpdateSettingResponse struct {
	Message string          `json:"message"`
	Setting SettingResponse `json:"setting"`
}

func ToSettingResponse(s *Setting) SettingResponse {
	return SettingResponse{
		Key:       s.Key,
		Value:     s.Value,
		Category:  s.Category,
		Version:   s.Version,
		UpdatedBy: s.UpdatedBy,
		UpdatedAt: s.UpdatedAt,
	}
}
