package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gabegon8910/server-donation-tool/internal/model"
)

func TestReference_String(t *testing.T) {
	t.Parallel()

	pkg := testPackage()

	t.Run("prefers steam id", func(t *testing.T) {
		t.Parallel()
		ref := model.NewReference("7650000001", "discord-1", pkg)
		assert.Equal(t, "7650000001#4", ref.String())
	})

	t.Run("falls back to discord id", func(t *testing.T) {
		t.Parallel()
		ref := model.NewReference("", "discord-1", pkg)
		assert.Equal(t, "discord-1#4", ref.String())
	})
}
