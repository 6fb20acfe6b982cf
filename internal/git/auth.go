package git

import "fmt"

// ConfigureBearerAuth registers an Authorization header for every https
// operation against baseURL. The token is passed per-invocation via -c,
// never embedded in remote URLs and never written to any config file.
func ConfigureBearerAuth(r *CLIRunner, baseURL, token string) {
	r.AddExtraConfig(fmt.Sprintf("http.%s.extraheader", baseURL), "Authorization: bearer "+token)
}
