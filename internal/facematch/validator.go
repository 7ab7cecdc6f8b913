package facematch

// ValidationState is the position of an image in the registration gate.
type ValidationState int

const (
	Unvalidated ValidationState = iota
	Decoded
	DecodeFailed
	Validated
	NoFaceFound
)

var validationStateNames = map[ValidationState]string{
	Unvalidated:  "unvalidated",
	Decoded:      "decoded",
	DecodeFailed: "decode_failed",
	Validated:    "validated",
	NoFaceFound:  "no_face_found",
}

func (s ValidationState) String() string {
	if n, ok := validationStateNames[s]; ok {
		return n
	}
	return "unknown"
}

// Terminal reports whether no further transition is possible.
func (s ValidationState) Terminal() bool {
	return s == DecodeFailed || s == Validated || s == NoFaceFound
}

// Rejection reasons shown to callers.
const (
	ReasonInvalidImage = "Invalid image format"
	ReasonNoFaces      = "No faces detected in the image"
	ReasonValid        = "Image is valid"
)

// Validation is the outcome of validating one image.
type Validation struct {
	State  ValidationState
	Reason string
	Image  *Image
	Faces  DetectionResult
}

// OK reports whether the image may proceed to encoding.
func (v Validation) OK() bool {
	return v.State == Validated
}

// Validator gates registration on decodable images with at least one face.
type Validator struct {
	detector *Detector
}

// NewValidator creates a validator using the given detector.
func NewValidator(d *Detector) *Validator {
	return &Validator{detector: d}
}

// Validate decodes data and runs detection. It never retries and never
// returns an error; rejections are carried in the result.
func (v *Validator) Validate(data []byte) Validation {
	res := Validation{State: Unvalidated}

	img, err := DecodeImage(data)
	if err != nil {
		res.State = DecodeFailed
		res.Reason = ReasonInvalidImage
		return res
	}
	res.State = Decoded
	res.Image = img

	res.Faces = v.detector.Detect(img.Decoded)
	if len(res.Faces) == 0 {
		res.State = NoFaceFound
		res.Reason = ReasonNoFaces
		return res
	}
	res.State = Validated
	res.Reason = ReasonValid
	return res
}
