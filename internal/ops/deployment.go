package ops

import "calendarbot/internal/adapters/config"

// Deployment describes where the bot runs
type Deployment struct {
	Platform    string // "railway" or "local"
	Environment string
	Service     string
}

func (d Deployment) String() string {
	if d.Platform != "railway" {
		return d.Platform
	}
	s := "railway"
	if d.Environment != "" {
		s += "/" + d.Environment
	}
	if d.Service != "" {
		s += "/" + d.Service
	}
	return s
}

// DetectDeployment reports Railway when either Railway variable is set
func DetectDeployment(cfg config.DeploymentConfig) Deployment {
	if !cfg.IsRailway() {
		return Deployment{Platform: "local"}
	}
	return Deployment{
		Platform:    "railway",
		Environment: cfg.RailwayEnvironment,
		Service:     cfg.RailwayServiceName,
	}
}
