package intake

// Normalize returns a copy of the result with all nil-valued entries removed
// and the sender tag forced to "admin". The input is not mutated. Total over
// any mapping: no failure modes.
func Normalize(result map[string]any) Turn {
	clean := make(Turn, len(result)+1)
	for k, v := range result {
		if v == nil {
			continue
		}
		clean[k] = v
	}
	clean["sender"] = SenderAdmin
	return clean
}
