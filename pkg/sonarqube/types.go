package sonarqube

const (
	StatusUp = "UP"

	systemStatusPath    = "/api/system/status"
	pluginsPath         = "/api/plugins/installed"
	qualityGatesPath    = "/api/qualitygates/list"
	qualityProfilesPath = "/api/qualityprofiles/search"
	LoginPath           = "/api/authentication/login"
)

type SystemStatus struct {
	ID      string `json:"id"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

type Plugin struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
}

type QualityGate struct {
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault"`
	IsBuiltIn bool   `json:"isBuiltIn"`
}

type QualityProfile struct {
	Key          string `json:"key"`
	Name         string `json:"name"`
	Language     string `json:"language"`
	LanguageName string `json:"languageName,omitempty"`
	IsDefault    bool   `json:"isDefault"`
	IsBuiltIn    bool   `json:"isBuiltIn"`
}

type pluginList struct {
	Plugins []Plugin `json:"plugins"`
}

type qualityGateList struct {
	QualityGates []QualityGate `json:"qualitygates"`
}

type qualityProfileList struct {
	Profiles []QualityProfile `json:"profiles"`
}
