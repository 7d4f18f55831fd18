package bytecode

import (
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// ImageVersion is the current image format version.
const ImageVersion = 1

// ErrImageVersion is returned when decoding an image written by an
// incompatible format version.
var ErrImageVersion = errors.New("bytecode: unsupported image version")

// Image is a compiled program together with the metadata needed to relate it
// back to its source. Images are stored in the build cache and written to
// disk as `.brimg` files.
type Image struct {
	Version   int           `cbor:"1,keyasint"`
	BuildID   string        `cbor:"2,keyasint"`
	Source    string        `cbor:"3,keyasint,omitempty"`
	Created   int64         `cbor:"4,keyasint,omitempty"` // unix seconds
	Code      []Instruction `cbor:"5,keyasint"`
	SourceMap SourceMap     `cbor:"6,keyasint,omitempty"`
}

// NewImage wraps a program in an image with a fresh build id.
func NewImage(source string, code []Instruction, sm SourceMap) *Image {
	return &Image{
		Version:   ImageVersion,
		BuildID:   uuid.NewString(),
		Source:    source,
		Created:   time.Now().Unix(),
		Code:      code,
		SourceMap: sm,
	}
}

// Text returns the textual form of the image's program.
func (img *Image) Text() string { return Text(img.Code) }

// cborEncMode uses canonical mode for deterministic encoding.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalImage serializes an Image to CBOR bytes.
func MarshalImage(img *Image) ([]byte, error) {
	return cborEncMode.Marshal(img)
}

// UnmarshalImage deserializes an Image from CBOR bytes.
func UnmarshalImage(data []byte) (*Image, error) {
	var img Image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal image: %w", err)
	}
	if img.Version != ImageVersion {
		return nil, fmt.Errorf("%w: %d", ErrImageVersion, img.Version)
	}
	return &img, nil
}
