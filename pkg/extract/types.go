package extract

// BlockType classifies a content block
type BlockType string

const (
	// BlockTypeLine is a primary line of detected text
	BlockTypeLine BlockType = "LINE"

	// BlockTypeAnnotation is secondary annotation text attached to a page
	BlockTypeAnnotation BlockType = "ANNOTATION"

	// BlockTypeWord is a single detected word; not consumed by the reconciler
	BlockTypeWord BlockType = "WORD"

	// BlockTypePage marks a page boundary; not consumed by the reconciler
	BlockTypePage BlockType = "PAGE"
)

// ContentBlock is an atomic unit of extracted content.
// A block without text carries the empty string.
type ContentBlock struct {
	Page int       // Source page number (1-based)
	Type BlockType // Block classification
	Text string    // Detected text
}

// ResultPage is one paginated response of a finished job
type ResultPage struct {
	Blocks    []ContentBlock
	NextToken string // Empty when no further pages exist
}
