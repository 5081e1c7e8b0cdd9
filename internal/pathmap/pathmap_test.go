package pathmap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ruipath/pathoprep/internal/testutil"
)

func TestTransform(t *testing.T) {
	logger := testutil.NewTestLogger(t)

	tests := []struct {
		name string
		path string
		rule string
		want string
	}{
		{
			name: "identity on empty rule",
			path: "/data/slides/case1.svs",
			rule: "",
			want: "/data/slides/case1.svs",
		},
		{
			name: "identity on whitespace rule",
			path: "storage/case1.svs",
			rule: "   ",
			want: "storage/case1.svs",
		},
		{
			name: "prefix substitution",
			path: "storage/slides/case1.svs",
			rule: "storage/:/mnt/ruipath/hospital_data/",
			want: "/mnt/ruipath/hospital_data/slides/case1.svs",
		},
		{
			name: "prefix substitution replaces only the leading prefix",
			path: "/old/data/old/case1.svs",
			rule: "/old:/new",
			want: "/new/data/old/case1.svs",
		},
		{
			name: "prefix miss leaves path unchanged",
			path: "/other/case1.svs",
			rule: "storage/:/mnt/data/",
			want: "/other/case1.svs",
		},
		{
			name: "prefix substitution normalizes the result",
			path: "storage//slides/./case1.svs",
			rule: "storage/:/mnt/data/",
			want: "/mnt/data/slides/case1.svs",
		},
		{
			name: "split on first colon only",
			path: "a:b/case1.svs",
			rule: "a:b:c",
			want: "b:c/case1.svs",
		},
		{
			name: "mount point with relative path",
			path: "slides/case1.svs",
			rule: "/mnt/ruipath/hospital_data",
			want: "/mnt/ruipath/hospital_data/slides/case1.svs",
		},
		{
			name: "mount point strips absolute anchor",
			path: "/exported/slides/case1.svs",
			rule: "/mnt/ruipath/hospital_data",
			want: "/mnt/ruipath/hospital_data/exported/slides/case1.svs",
		},
		{
			name: "mount point with trailing slash",
			path: "case1.svs",
			rule: "/mnt/data/",
			want: "/mnt/data/case1.svs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Transform(tt.path, tt.rule, logger)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransformNilLogger(t *testing.T) {
	// A nil logger must not panic, even on the warning path.
	got := Transform("/other/case1.svs", "storage/:/mnt/data/", nil)
	assert.Equal(t, "/other/case1.svs", got)
}
