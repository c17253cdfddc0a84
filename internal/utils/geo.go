package utils

import "math"

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two coordinates.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
    rad := math.Pi / 180
    dLat := (lat2 - lat1) * rad
    dLng := (lng2 - lng1) * rad
    a := math.Sin(dLat/2)*math.Sin(dLat/2) +
        math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
    return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}

// BoundingBox returns the lat/lng box enclosing a radius around a point.
// It prefilters rows in SQL before the spherical distance check.
func BoundingBox(lat, lng, radiusKm float64) (minLat, maxLat, minLng, maxLng float64) {
    dLat := radiusKm / earthRadiusKm * 180 / math.Pi
    cos := math.Cos(lat * math.Pi / 180)
    if cos < 1e-6 {
        cos = 1e-6
    }
    dLng := dLat / cos
    return lat - dLat, lat + dLat, lng - dLng, lng + dLng
}
