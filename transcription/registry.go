package transcription

import "github.com/kbukum/mediaflow/provider"

// NewRegistry creates a registry of transcription providers keyed by name.
func NewRegistry() *provider.Registry[Provider] {
	return provider.NewRegistry[Provider]()
}
