// Package ring implements the newest-first bounded lists used for event logs.
package ring

// Prepend puts item at the front of list and drops the oldest entries so the
// result holds at most max elements.
func Prepend[T any](list []T, item T, max int) []T {
	out := make([]T, 0, min(len(list)+1, max))
	out = append(out, item)
	for _, v := range list {
		if len(out) >= max {
			break
		}
		out = append(out, v)
	}
	return out
}

// AppendUnique appends item when it is not already present, evicting from the
// front once the list exceeds max. It reports whether item was new.
func AppendUnique[T comparable](list []T, item T, max int) ([]T, bool) {
	for _, v := range list {
		if v == item {
			return list, false
		}
	}
	list = append(list, item)
	if len(list) > max {
		list = list[len(list)-max:]
	}
	return list, true
}
