package objectclient

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// ArtifactKey lays out artifact objects per organization and session.
func ArtifactKey(orgID, sessionID, artifactID, filename string) string {
	name := strings.TrimSpace(filepath.Base(filename))
	name = strings.ReplaceAll(name, " ", "_")
	if name == "" || name == "." || name == "/" {
		name = "artifact"
	}
	return path.Join("orgs", orgID, "sessions", sessionID, "artifacts", artifactID, name)
}

func ObjectURL(bucket, region, key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
}
