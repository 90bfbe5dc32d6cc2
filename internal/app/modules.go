package app

import (
	"io"

	"github.com/vk/opgraph/internal/registry"
	"github.com/vk/opgraph/modules/constant"
	"github.com/vk/opgraph/modules/envvars"
	"github.com/vk/opgraph/modules/merge"
	"github.com/vk/opgraph/modules/passthrough"
	"github.com/vk/opgraph/modules/print"
)

// coreModules is the definitive list of all operator modules compiled into
// the binary. print writes to outW.
func coreModules(outW io.Writer) []registry.Module {
	return []registry.Module{
		&constant.Module{},
		&passthrough.Module{},
		&merge.Module{},
		&envvars.Module{},
		&print.Module{Out: outW},
	}
}
