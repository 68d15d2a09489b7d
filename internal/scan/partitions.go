package scan

import "math/rand"

// AgeBand is one inclusive age range used to slice a country's catalog into
// pages small enough for the source's page cap.
type AgeBand struct {
	Min int
	Max int
}

// Partition is one filter combination the producer scans per cycle.
type Partition struct {
	Nationality string
	Band        AgeBand
}

// ageBands tile the plausible age range [18,99] with no gaps: one wide band
// for young adults, five-year bands through 79, and one tail band.
var ageBands = []AgeBand{
	{18, 24},
	{25, 29},
	{30, 34},
	{35, 39},
	{40, 44},
	{45, 49},
	{50, 54},
	{55, 59},
	{60, 64},
	{65, 69},
	{70, 74},
	{75, 79},
	{80, 99},
}

// AgeBands returns the fixed band set.
func AgeBands() []AgeBand {
	return append([]AgeBand(nil), ageBands...)
}

// Partitions produces the full country × age-band cross product in randomized
// order. Shuffling avoids always hammering the same partitions first when a
// cycle is cut short.
func Partitions() []Partition {
	out := make([]Partition, 0, len(countryCodes)*len(ageBands))
	for _, country := range countryCodes {
		for _, band := range ageBands {
			out = append(out, Partition{Nationality: country, Band: band})
		}
	}
	rand.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
