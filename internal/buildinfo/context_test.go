package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		ctx         *Context
		wantVersion string
		wantDate    string
	}{
		{name: "nil context", ctx: nil, wantVersion: UnknownValue, wantDate: UnknownValue},
		{name: "empty fields", ctx: NewContext("", ""), wantVersion: UnknownValue, wantDate: UnknownValue},
		{name: "release", ctx: NewContext("v1.2.0", "2026-10-01"), wantVersion: "v1.2.0", wantDate: "2026-10-01"},
		{name: "pre-release tag", ctx: NewContext("v1.3.0-rc1", ""), wantVersion: "v1.3.0-rc1", wantDate: UnknownValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantVersion, tt.ctx.GetVersion())
			assert.Equal(t, tt.wantDate, tt.ctx.GetBuildDate())
		})
	}

	assert.Equal(t, "v1.2.0 (built 2026-10-01)", NewContext("v1.2.0", "2026-10-01").String())
}
