package translation

import "time"

// DefaultNamespace is used when a request names none.
const DefaultNamespace = "common"

type Translation struct {
	ID        string    `json:"id"`
	Locale    string    `json:"locale"`
	Namespace string    `json:"namespace"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Input struct {
	Locale    string `json:"locale" validate:"required,bcp47_language_tag"`
	Namespace string `json:"namespace" validate:"omitempty,max=50"`
	Key       string `json:"key" validate:"required,max=200"`
	Value     string `json:"value" validate:"max=5000"`
}

type Filter struct {
	Locale    string
	Namespace string
	// Query matches keys and values case-insensitively.
	Query string
}
