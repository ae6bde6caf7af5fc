package objectclient

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/config"
)

func TestArtifactKey(t *testing.T) {
	assert.Equal(t, "orgs/o1/sessions/s1/artifacts/a1/my_report.pdf",
		ArtifactKey("o1", "s1", "a1", "../../etc/my report.pdf"))
	assert.Equal(t, "orgs/o1/sessions/s1/artifacts/a1/artifact",
		ArtifactKey("o1", "s1", "a1", ""))
}

func TestObjectURL(t *testing.T) {
	assert.Equal(t, "https://b.s3.us-east-2.amazonaws.com/k/x.png", ObjectURL("b", "us-east-2", "k/x.png"))
}

func TestConfigured(t *testing.T) {
	assert.False(t, Configured(&config.Config{BucketName: "b"}))
	assert.True(t, Configured(&config.Config{AwsAccessKey: "a", AwsSecretKey: "s", BucketName: "b"}))
}
