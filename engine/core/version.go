package core

const apiVersion = "v0"

// GetVersion returns the API version segment used in routes.
func GetVersion() string {
	return apiVersion
}
