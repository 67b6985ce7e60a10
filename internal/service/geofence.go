package service

import (
	"math"
	"strings"
)

const earthRadiusMeters = 6371000.0

// HaversineMeters returns the great-circle distance between two coordinates.
func HaversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// ClientIP picks the originating address: the first X-Forwarded-For entry
// when present, the peer address otherwise.
func ClientIP(forwardedFor, peer string) string {
	if forwardedFor != "" {
		first := strings.TrimSpace(strings.Split(forwardedFor, ",")[0])
		if first != "" {
			return first
		}
	}
	return strings.TrimSpace(peer)
}

// IPAllowed reports whether ip starts with one of the prefixes. An empty
// prefix list allows nothing.
func IPAllowed(ip string, prefixes []string) bool {
	if ip == "" {
		return false
	}
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(ip, prefix) {
			return true
		}
	}
	return false
}
