package earthengine

import (
	"context"
	"net/http"
	"os"

	"github.com/rotisserie/eris"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Scopes requested for Earth Engine access.
var Scopes = []string{
	"https://www.googleapis.com/auth/earthengine",
	"https://www.googleapis.com/auth/cloud-platform",
}

// NewAuthorizedHTTPClient returns an HTTP client that attaches OAuth2 bearer
// tokens. With an empty credentialsFile, Application Default Credentials are used.
func NewAuthorizedHTTPClient(ctx context.Context, credentialsFile string) (*http.Client, error) {
	var (
		creds *google.Credentials
		err   error
	)
	if credentialsFile != "" {
		data, readErr := os.ReadFile(credentialsFile)
		if readErr != nil {
			return nil, eris.Wrapf(readErr, "earthengine: read credentials %s", credentialsFile)
		}
		creds, err = google.CredentialsFromJSON(ctx, data, Scopes...)
	} else {
		creds, err = google.FindDefaultCredentials(ctx, Scopes...)
	}
	if err != nil {
		return nil, eris.Wrap(err, "earthengine: load credentials")
	}
	return oauth2.NewClient(ctx, creds.TokenSource), nil
}
