package call

// SessionChannel derives the media channel name for a 1:1 call. It is
// symmetric in its arguments, so the initiating and accepting sides
// always land in the same room no matter which identity each passes
// first.
func SessionChannel(idA, idB string) string {
	if idB < idA {
		idA, idB = idB, idA
	}
	return idA + "_" + idB
}
