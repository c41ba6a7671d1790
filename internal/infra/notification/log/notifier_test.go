package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotifier_Notify(t *testing.T) {
	t.Run("should never fail", func(t *testing.T) {
		assert.NoError(t, NewNotifier().Notify(t.Context(), "Deposits tracker service started"))
	})
}
