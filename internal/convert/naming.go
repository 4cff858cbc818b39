// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"fmt"
	"path/filepath"

	"github.com/pdiddy/pdf2txt/pkg/types"
)

// namer assigns output paths within one batch.
type namer struct {
	dir    string
	policy types.CollisionPolicy
	used   map[string]bool
}

func newNamer(dir string, policy types.CollisionPolicy) *namer {
	return &namer{dir: dir, policy: policy, used: make(map[string]bool)}
}

// next returns the output path for an input with the given base name. Under
// CollisionSuffix a name already handed out in this batch gets -1, -2, ...
// appended; under any other policy the same name is reused and the later
// item overwrites the earlier one.
func (n *namer) next(base string) string {
	name := base
	if n.policy == types.CollisionSuffix {
		for i := 1; n.used[name]; i++ {
			name = fmt.Sprintf("%s-%d", base, i)
		}
	}
	n.used[name] = true
	return filepath.Join(n.dir, name+textExt)
}
