package task

import (
	"fmt"
	"strings"
)

// Bucket is a task's position in the rolling three-day window. It is not a
// calendar date.
type Bucket string

const (
	Yesterday Bucket = "YESTERDAY"
	Today     Bucket = "TODAY"
	Tomorrow  Bucket = "TOMORROW"
)

// Buckets returns the window from left to right.
func Buckets() []Bucket {
	return []Bucket{Yesterday, Today, Tomorrow}
}

func (b Bucket) Valid() bool {
	switch b {
	case Yesterday, Today, Tomorrow:
		return true
	}
	return false
}

func (b Bucket) String() string {
	switch b {
	case Yesterday:
		return "Yesterday"
	case Today:
		return "Today"
	case Tomorrow:
		return "Tomorrow"
	}
	return string(b)
}

// Index is the bucket's position from the left, or -1 when invalid.
func (b Bucket) Index() int {
	for i, got := range Buckets() {
		if got == b {
			return i
		}
	}
	return -1
}

// Left returns the neighbor toward Yesterday. ok is false at the edge.
func (b Bucket) Left() (Bucket, bool) {
	switch b {
	case Today:
		return Yesterday, true
	case Tomorrow:
		return Today, true
	}
	return b, false
}

// Right returns the neighbor toward Tomorrow. ok is false at the edge.
func (b Bucket) Right() (Bucket, bool) {
	switch b {
	case Yesterday:
		return Today, true
	case Today:
		return Tomorrow, true
	}
	return b, false
}

// Neighbor resolves a swipe in the given direction.
func (b Bucket) Neighbor(dir Direction) (Bucket, bool) {
	switch dir {
	case Left:
		return b.Left()
	case Right:
		return b.Right()
	}
	return b, false
}

func ParseBucket(raw string) (Bucket, error) {
	b := Bucket(strings.ToUpper(strings.TrimSpace(raw)))
	if !b.Valid() {
		return "", fmt.Errorf("task: unknown day %q", raw)
	}
	return b, nil
}

// Direction is a swipe toward one edge of the window.
type Direction string

const (
	Left  Direction = "LEFT"
	Right Direction = "RIGHT"
)

func ParseDirection(raw string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "LEFT", "L", "BACK":
		return Left, nil
	case "RIGHT", "R", "FORWARD":
		return Right, nil
	}
	return "", fmt.Errorf("task: unknown direction %q", raw)
}
