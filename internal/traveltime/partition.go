package traveltime

// Chunk is a contiguous range of latitude rows [Begin, End).
type Chunk struct {
	Index int
	Begin int
	End   int
}

// Len returns the number of rows in the chunk.
func (c Chunk) Len() int {
	return c.End - c.Begin
}

// Partition splits rows into at most workers contiguous chunks of equal size;
// only the last chunk may be shorter. Empty chunks are never returned.
func Partition(rows, workers int) []Chunk {
	if rows <= 0 || workers <= 0 {
		return nil
	}
	size := (rows + workers - 1) / workers

	chunks := make([]Chunk, 0, workers)
	for begin := 0; begin < rows; begin += size {
		end := begin + size
		if end > rows {
			end = rows
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Begin: begin, End: end})
	}
	return chunks
}
