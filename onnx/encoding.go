package onnx

// EncodeInputs truncates or zero-pads token ids to maxLength and builds the
// matching attention mask (1 for real tokens, 0 for padding).
func EncodeInputs(ids []uint32, maxLength int) (inputIDs, attentionMask []int64) {
	inputIDs = make([]int64, maxLength)
	attentionMask = make([]int64, maxLength)

	n := min(len(ids), maxLength)
	for i := 0; i < n; i++ {
		inputIDs[i] = int64(ids[i])
		attentionMask[i] = 1
	}
	return inputIDs, attentionMask
}
