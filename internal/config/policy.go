package config

import "log/slog"

// IsValidPolicy reports whether name is a recognized policy.
func IsValidPolicy(name string) bool {
	return name == PolicyClassic || name == PolicyChoreography
}

// ResolvePolicy picks the policy to run. A missing config (cfg == nil), a
// load error or an unrecognized name all fall back to classic with a
// warning; none of them is fatal.
func ResolvePolicy(cfg *Config, loadErr error, logger *slog.Logger) string {
	if loadErr != nil || cfg == nil {
		logger.Warn("scheduler config unavailable, using default policy",
			"policy", PolicyClassic, "error", loadErr)
		return PolicyClassic
	}
	policy := cfg.SchedulerConf.Policy
	if !IsValidPolicy(policy) {
		logger.Warn("unrecognized scheduler policy, using default",
			"requested", policy, "policy", PolicyClassic)
		return PolicyClassic
	}
	return policy
}
