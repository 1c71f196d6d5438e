package render_queue

// insertionSortThreshold is the largest range length sorted by insertion sort instead of partitioning.
const insertionSortThreshold = 10

// Sort sorts a[from:to] in place with compare, which returns a negative number when x orders
// before y, a positive number when after, and zero when they are equivalent.
//
// The sort is a median-of-three quicksort with three-way partitioning that falls back to
// insertion sort for short ranges. It recurses into the smaller partition and iterates on the
// larger one, so stack depth stays logarithmic. It is not stable.
func Sort[T any](a []T, from, to int, compare func(x, y T) int) {
	for {
		if to-from <= insertionSortThreshold {
			insertionSort(a, from, to, compare)
			return
		}

		mid := (from + to) >> 1

		// Order the first, last and middle elements; the median becomes the pivot.
		v0, v1, v2 := a[from], a[to-1], a[mid]
		if compare(v0, v1) > 0 {
			v0, v1 = v1, v0
		}
		if compare(v0, v2) >= 0 {
			v0, v1, v2 = v2, v0, v1
		} else if compare(v1, v2) > 0 {
			v1, v2 = v2, v1
		}
		a[from] = v0
		a[to-1] = v2
		pivot := v1

		lowEnd := from + 1  // a[from+1:lowEnd] < pivot
		highStart := to - 1 // a[highStart:to-1] > pivot
		a[mid] = a[lowEnd]
		a[lowEnd] = pivot

		// a[lowEnd:i] == pivot, a[i:highStart] is unclassified.
	partition:
		for i := lowEnd + 1; i < highStart; i++ {
			element := a[i]
			order := compare(element, pivot)
			if order < 0 {
				a[i] = a[lowEnd]
				a[lowEnd] = element
				lowEnd++
			} else if order > 0 {
				for {
					highStart--
					if highStart == i {
						break partition
					}
					order = compare(a[highStart], pivot)
					if order <= 0 {
						break
					}
				}
				a[i] = a[highStart]
				a[highStart] = element
				if order < 0 {
					element = a[i]
					a[i] = a[lowEnd]
					a[lowEnd] = element
					lowEnd++
				}
			}
		}

		if to-highStart < lowEnd-from {
			Sort(a, highStart, to, compare)
			to = lowEnd
		} else {
			Sort(a, from, lowEnd, compare)
			from = highStart
		}
	}
}

func insertionSort[T any](a []T, from, to int, compare func(x, y T) int) {
	for i := from + 1; i < to; i++ {
		element := a[i]
		j := i - 1
		for ; j >= from; j-- {
			if compare(a[j], element) <= 0 {
				break
			}
			a[j+1] = a[j]
		}
		a[j+1] = element
	}
}
