package clip

import (
	"fmt"
	"strings"
)

// descriptorFileName is the concat descriptor's name inside the per-request
// working directory.
const descriptorFileName = "segments.txt"

// BuildConcatDescriptor renders the manifest consumed by ffmpeg's concat
// demuxer: one line per segment, in input order, each formatted as
// `file '<path>'`. The `file ` prefix and single quotes are part of the
// demuxer's wire format. Pure function; writing is left to the caller.
func BuildConcatDescriptor(segments []string) string {
	lines := make([]string, len(segments))
	for i, seg := range segments {
		lines[i] = fmt.Sprintf("file '%s'", seg)
	}
	return strings.Join(lines, "\n")
}
