package domain

// Helpers for the ordered unique id lists kept by users, pages and guides.
// All of them return a new slice and never mutate their input.

// Contains reports whether id is present in ids.
func Contains(ids []string, id string) bool {
	return IndexOf(ids, id) >= 0
}

// IndexOf returns the position of id in ids, or -1.
func IndexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

// Remove drops every occurrence of id.
func Remove(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// MoveToFront removes id wherever it is and reinserts it at the head.
func MoveToFront(ids []string, id string) []string {
	out := make([]string, 0, len(ids)+1)
	out = append(out, id)
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// PrependUnique inserts id at the head unless it is already present.
// The second return value reports whether the list changed.
func PrependUnique(ids []string, id string) ([]string, bool) {
	if Contains(ids, id) {
		return append([]string(nil), ids...), false
	}
	out := make([]string, 0, len(ids)+1)
	out = append(out, id)
	return append(out, ids...), true
}

// AppendUnique adds id at the tail unless it is already present.
func AppendUnique(ids []string, id string) ([]string, bool) {
	if Contains(ids, id) {
		return append([]string(nil), ids...), false
	}
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids...)
	return append(out, id), true
}
