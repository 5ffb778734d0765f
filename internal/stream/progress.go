package stream

// ProgressTracker forwards cumulative progress to a callback.
//
// Example:
//
//	tracker := &ProgressTracker{
//	    Total: handle.Size(),
//	    OnUpdate: func(written, total int64) {
//	        fmt.Printf("%d / %d bytes\n", written, total)
//	    },
//	}
type ProgressTracker struct {
	// Total is the expected total bytes.
	Total int64

	// Written is the current number of bytes written.
	Written int64

	// OnUpdate is called after each chunk with (bytesWritten, totalExpected).
	OnUpdate func(written, total int64)
}

// Add implements Progress.
func (p *ProgressTracker) Add(n int) error {
	p.Written += int64(n)
	if p.OnUpdate != nil {
		p.OnUpdate(p.Written, p.Total)
	}
	return nil
}

// MultiProgress fans a chunk count out to several sinks. Nil entries are skipped.
type MultiProgress []Progress

// Add implements Progress.
func (m MultiProgress) Add(n int) error {
	for _, p := range m {
		if p != nil {
			_ = p.Add(n)
		}
	}
	return nil
}
