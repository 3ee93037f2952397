package handler

type ProjectParams struct {
	ProjectID    int64  `param:"project_id"`
	Repository   string `                   json:"repository"`
	WorkingPath  string `                   json:"working_path"`
	ManifestFile string `                   json:"manifest_file"`
	CredentialID *int64 `                   json:"credential_id"`
}

type ReleaseParams struct {
	ProjectID int64  `param:"project_id"`
	ReleaseID int64  `param:"release_id"`
	Tag       string `                   json:"tag"`
}

type ListReleasesParams struct {
	ProjectID int64 `param:"project_id"`
	Limit     int64 `                   query:"limit"`
}

type CredentialParams struct {
	CredentialID  int64  `param:"credential_id"`
	Username      string `                      json:"username"`
	Description   string `                      json:"description"`
	SSHPrivateKey string `                      json:"ssh_private_key"`
}

type APIKeyParams struct {
	ID int64 `param:"id"`
}
