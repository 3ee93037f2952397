package release

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReleaseConfig_Normalize(t *testing.T) {
	t.Run("success - apps prefix is rewritten", func(t *testing.T) {
		// act
		c, err := ReleaseConfig{WorkingPath: "apps/shop"}.Normalize("/srv/apps")

		// assert
		assert.NoError(t, err)
		assert.Equal(t, "/srv/apps/shop", c.WorkingPath)
		assert.Equal(t, DefaultManifestFile, c.ManifestFile)
	})
	t.Run("success - absolute path is kept", func(t *testing.T) {
		// act
		c, err := ReleaseConfig{
			WorkingPath:  "/opt/shop/",
			ManifestFile: "compose.prod.yaml",
		}.Normalize("/srv/apps")

		// assert
		assert.NoError(t, err)
		assert.Equal(t, "/opt/shop", c.WorkingPath)
		assert.Equal(t, "/opt/shop/compose.prod.yaml", c.ManifestPath())
	})
	t.Run("failure - empty working path", func(t *testing.T) {
		// act
		_, err := ReleaseConfig{}.Normalize("/srv/apps")

		// assert
		assert.Error(t, err)
	})
}

func TestShadow(t *testing.T) {
	t.Run("success - shadow environment derives from production", func(t *testing.T) {
		// arrange
		c := ReleaseConfig{WorkingPath: "/srv/apps/My.Shop", ManifestFile: "docker-compose.yml"}

		// act
		prod := Production(c)
		shadow := Shadow(c)

		// assert
		assert.Equal(t, "myshop", prod.Project)
		assert.Equal(t, "myshop-test", shadow.Project)
		assert.Equal(t, "/srv/apps/My.Shop/docker-compose.test.yml", shadow.Manifest)
	})
}
