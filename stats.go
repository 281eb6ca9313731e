// Copyright (c) 2024 The ddcore Authors
//
// MIT License

package ddcore

import "fmt"

// Stats reports node-arena occupancy and operation-cache hit rate,
// mirroring the layout of dalzilio-rudd's buddy.Stats (stdio.go):
// level/allocation counts first, then the cache's own String().
func (f *Forest) Stats() string {
	total := len(f.nodes.nodes)
	free := f.nodes.freeNum
	used := total - free
	var freePct, usedPct float64
	if total > 0 {
		freePct = float64(free) * 100 / float64(total)
		usedPct = float64(used) * 100 / float64(total)
	}
	res := fmt.Sprintf("Reduction:  %s\n", f.reduction)
	res += fmt.Sprintf("Levels:     %d\n", f.numLevels)
	res += fmt.Sprintf("Allocated:  %d\n", total)
	res += fmt.Sprintf("Produced:   %d\n", f.nodes.produced)
	res += fmt.Sprintf("Free:       %d  (%.3g %%)\n", free, freePct)
	res += fmt.Sprintf("Used:       %d  (%.3g %%)\n", used, usedPct)
	res += "==============\n"
	res += f.cache.String() + "\n"
	return res
}
