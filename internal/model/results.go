package model

// DetectionResult is the tagged outcome of source detection. Cascade stages
// are evaluated in order and detection short-circuits on the first result
// whose confidence clears that stage's threshold; Method names the stage
// that produced the result.
type DetectionResult struct {
	Source     Source
	Method     string
	Confidence float64
}

// ClassificationResult is the outcome of merchant classification for one
// transaction description.
type ClassificationResult struct {
	Merchant    string
	Category    string
	Subcategory string
	Method      string
	Confidence  float64
	NewMerchant bool
}
