package types

// OverrideDocument is the per-application parameter override file consumed by the deployment-sync tool.
//
// The serialized shape is {helm: {parameters: [{name, value, forcestring}]}} and must be kept exactly.
type OverrideDocument struct {
	Helm HelmOverride `json:"helm"`
}

// HelmOverride holds the ordered Helm parameter overrides.
type HelmOverride struct {
	Parameters []Parameter `json:"parameters"`
}

// Parameter pins a single Helm value.
type Parameter struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	ForceString bool   `json:"forcestring"`
}
