package service

import (
	"strava-stats/internal/store"
	"strava-stats/internal/strava"
)

// StreamFromCache converts a cached stream payload into the aligned core
// stream. Time and distance are required: if either is missing or their
// lengths differ, the activity has no usable stream and nil is returned.
// Optional series whose length differs from time are dropped.
func StreamFromCache(s *strava.Streams) *store.Stream {
	if s == nil || s.Time == nil || s.Distance == nil {
		return nil
	}
	n := len(s.Time.Data)
	if n == 0 || len(s.Distance.Data) != n {
		return nil
	}

	stream := &store.Stream{
		Time:     s.Time.Data,
		Distance: s.Distance.Data,
	}

	if s.Altitude != nil && len(s.Altitude.Data) == n {
		stream.Altitude = s.Altitude.Data
	}
	if s.LatLng != nil && len(s.LatLng.Data) == n {
		stream.LatLng = s.LatLng.Data
	}
	if s.Moving != nil && len(s.Moving.Data) == n {
		stream.Moving = s.Moving.Data
	}
	if s.Watts != nil && len(s.Watts.Data) == n {
		stream.Power = wattsFromCache(s.Watts.Data)
	}

	return stream
}

// wattsFromCache replaces dropped-out samples with zero power. A series
// with no sample at all is treated as absent.
func wattsFromCache(data []*int) []int {
	power := make([]int, len(data))
	seen := false
	for i, w := range data {
		if w != nil {
			power[i] = *w
			seen = true
		}
	}
	if !seen {
		return nil
	}
	return power
}

// DecodeStreamCache parses a stored payload into a core stream
func DecodeStreamCache(c *store.StreamCache) (*store.Stream, error) {
	s, err := strava.ParseStreams(c.Payload)
	if err != nil {
		return nil, err
	}
	return StreamFromCache(s), nil
}
