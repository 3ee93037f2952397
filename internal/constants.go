package internal

const (
	DotEnvPath        = "./.env"
	ConfigPath        = "config.json"
	DBTimestampLayout = "2006-01-02 15:04:05"

	APIKeyHeader          = "X-SimpleRelease-Key"
	GitHubEventHeader     = "X-GitHub-Event"
	GitHubSignatureHeader = "X-Hub-Signature-256"
	GitHubDeliveryHeader  = "X-GitHub-Delivery"
)
