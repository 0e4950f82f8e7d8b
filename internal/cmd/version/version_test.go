package version

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mike10004/containment-sub001/internal/cmdutil"
	"github.com/mike10004/containment-sub001/internal/iostreams"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name    string
		version string
		commit  string
		want    string
	}{
		{
			name:    "version only",
			version: "1.2.3",
			want:    "containment version 1.2.3\n",
		},
		{
			name:    "leading v with commit",
			version: "v1.2.3",
			commit:  "abc1234",
			want:    "containment version 1.2.3 (abc1234)\n",
		},
		{
			name:    "dev build",
			version: "dev",
			commit:  "none",
			want:    "containment version dev\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Format(tt.version, tt.commit)
			if got != tt.want {
				t.Errorf("Format(%q, %q) = %q, want %q", tt.version, tt.commit, got, tt.want)
			}
		})
	}
}

func TestNewCmdVersion(t *testing.T) {
	tio := iostreams.NewTestIOStreams()
	f := &cmdutil.Factory{Version: "0.3.0", IOStreams: tio.IOStreams}

	cmd := NewCmdVersion(f)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	require.Equal(t, "containment version 0.3.0\n", tio.OutBuf.String())
}
