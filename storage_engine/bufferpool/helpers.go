package bufferpool

/*
This file holds helper functions for the bufferpool
*/

// GetStats returns current buffer pool statistics
func (bp *BufferPool) GetStats() BufferPoolStats {
	stats := BufferPoolStats{
		Capacity:      len(bp.slots),
		PageCapacity:  bp.pageCapacity,
		OutputRecords: bp.slots[bp.OutputSlot()].page.Len(),
		PagesLoaded:   bp.pagesLoaded,
		PagesFlushed:  bp.pagesFlushed,
	}
	for i := 0; i < bp.InputSlots(); i++ {
		if bp.slots[i].run == nil {
			continue
		}
		stats.BoundInputs++
		if bp.slots[i].drained {
			stats.DrainedInputs++
		}
	}
	return stats
}

// Capacity returns the number of page slots, B
func (bp *BufferPool) Capacity() int {
	return len(bp.slots)
}

func (bp *BufferPool) PageCapacity() int {
	return bp.pageCapacity
}

// Occupied returns how many slots currently hold a non-empty page
func (bp *BufferPool) Occupied() int {
	n := 0
	for _, s := range bp.slots {
		if s.page != nil && !s.page.IsEmpty() {
			n++
		}
	}
	return n
}
