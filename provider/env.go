package provider

import "strings"

// EnvMap converts a KEY=VALUE list (os.Environ) into a map. Later entries
// win, matching exec.Cmd.
func EnvMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env
}

// Sanitize returns a copy of base without the named keys, with extra
// layered on top.
func Sanitize(base map[string]string, strip []string, extra map[string]string) map[string]string {
	env := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		env[k] = v
	}
	for _, k := range strip {
		delete(env, k)
	}
	for k, v := range extra {
		env[k] = v
	}
	return env
}
