package metadata

import "strings"

// Reserved namespaces. Each is written by exactly one pipeline stage.
const (
	NamespaceOrientation   = "orientation"
	NamespaceCalibration   = "calibration"
	NamespaceShower        = "shower"
	NamespaceSatellite     = "satellite"
	NamespaceTriangulation = "triangulation"
	NamespaceFrameDrop     = "frame_drop"
	NamespacePlane         = "plane"
	NamespaceWeb           = "web"
	NamespacePigazing      = "pigazing"
)

var reserved = map[string]bool{
	NamespaceOrientation:   true,
	NamespaceCalibration:   true,
	NamespaceShower:        true,
	NamespaceSatellite:     true,
	NamespaceTriangulation: true,
	NamespaceFrameDrop:     true,
	NamespacePlane:         true,
	NamespaceWeb:           true,
	NamespacePigazing:      true,
}

// Refresh is the key whose record wipes every earlier observatory fact.
const Refresh = "refresh"

// Observatory facts.
const (
	KeyLens           = "pigazing:lens"
	KeyCamera         = "pigazing:camera"
	KeyCameraWidth    = "pigazing:camera_width"
	KeyCameraHeight   = "pigazing:camera_height"
	KeySensorWidth    = "pigazing:sensor_width"
	KeySensorHeight   = "pigazing:sensor_height"
	KeyClippingRegion = "pigazing:clipping_region"
	KeyLatitude       = "pigazing:latitude"
	KeyLongitude      = "pigazing:longitude"
	KeyAltitude       = "pigazing:altitude"
)

// Orientation written by the calibrator, both per image (on observations) and
// as daily averages (on observatories).
const (
	KeyOrientationAltitude     = "orientation:altitude"
	KeyOrientationAzimuth      = "orientation:azimuth"
	KeyOrientationTilt         = "orientation:tilt"
	KeyOrientationRoll         = "orientation:roll"
	KeyOrientationRA           = "orientation:ra"
	KeyOrientationDec          = "orientation:dec"
	KeyOrientationAngWidth     = "orientation:ang_width"
	KeyOrientationAngHeight    = "orientation:ang_height"
	KeyOrientationUncertainty  = "orientation:uncertainty"
	KeyOrientationFitQuality   = "orientation:fit_quality"
	KeyOrientationFitToDaily   = "orientation:fit_quality_to_daily"
	KeyOrientationImageCount   = "orientation:image_count"
	KeyCalibrationBarrel       = "calibration:lens_barrel_parameters"
	KeyCalibrationChiSquared   = "calibration:chi_squared"
	KeyCalibrationPointCount   = "calibration:point_count"
	KeyCalibrationStarList     = "calibration:star_list"
	KeyCalibrationResidualList = "calibration:residuals"
)

// Observation facts written by capture and consumed by the pipeline.
const (
	KeyPath           = "pigazing:path"
	KeyPathBezier     = "pigazing:path_bezier"
	KeyDuration       = "pigazing:duration"
	KeyDetectionCount = "pigazing:detection_count"
	KeyCategory       = "web:category"
)

// Shower identification.
const (
	KeyShowerName          = "shower:name"
	KeyShowerRadiantOffset = "shower:radiant_offset"
	KeyShowerPathLength    = "shower:path_length"
	KeyShowerPathRaDec     = "shower:path_ra_dec"
	KeyShowerLikelihood    = "shower:likelihood"
)

// Satellite identification.
const (
	KeySatelliteName          = "satellite:name"
	KeySatelliteNoradID       = "satellite:norad_id"
	KeySatelliteClockOffset   = "satellite:clock_offset"
	KeySatelliteAngularOffset = "satellite:angular_offset"
	KeySatellitePathLength    = "satellite:path_length"
	KeySatellitePathRaDec     = "satellite:path_ra_dec"
)

// Triangulation results, on groups and on member observations.
const (
	KeyTriangulationSpeed            = "triangulation:speed"
	KeyTriangulationGeocentreSpeed   = "triangulation:geocentre_speed"
	KeyTriangulationObserverSpeed    = "triangulation:observer_frame_speed"
	KeyTriangulationGeocentreHeading = "triangulation:geocentre_heading"
	KeyTriangulationObserverHeading  = "triangulation:observer_frame_heading"
	KeyTriangulationMeanAltitude     = "triangulation:mean_altitude"
	KeyTriangulationMaxAngularOffset = "triangulation:max_angular_offset"
	KeyTriangulationMaxBaseline      = "triangulation:max_baseline"
	KeyTriangulationRadiantDirection = "triangulation:radiant_direction"
	KeyTriangulationSightLineCount   = "triangulation:sight_line_count"
	KeyTriangulationPath             = "triangulation:path"
	KeyTriangulationSamples          = "triangulation:samples"
	KeyTriangulationStatus           = "triangulation:status"
)

const KeyFrameDropList = "frame_drop:list"

// Observation types, group and file semantic types, and web categories.
const (
	ObservationTypeTimelapse    = "pigazing:timelapse"
	ObservationTypeMovingObject = "pigazing:movingObject"

	SemanticTypeSimultaneous   = "pigazing:simultaneous"
	SemanticTypeTimelapse      = "pigazing:timelapse/original"
	SemanticTypeBackgroundSub  = "pigazing:timelapse/backgroundSubtracted"
	SemanticTypeTriggerVideo   = "pigazing:movingObject/video"
	SemanticTypeMaxBrightness  = "pigazing:movingObject/maximumBrightness"
	SemanticTypeBezierPathFile = "pigazing:movingObject/pathBezier"

	CategoryMeteor    = "Meteor"
	CategorySatellite = "Satellite"
	CategoryPlane     = "Plane"
)

// Namespace returns the part of key before the first colon, or "" when there is
// none.
func Namespace(key string) string {
	ns, _, ok := strings.Cut(key, ":")
	if !ok {
		return ""
	}
	return ns
}

// IsReserved reports whether key belongs to a pipeline-owned namespace.
func IsReserved(key string) bool {
	return reserved[Namespace(key)]
}

// StageKeys lists the keys a stage writes, for flushing before recomputation.
func StageKeys(namespace string) []string {
	switch namespace {
	case NamespaceShower:
		return []string{KeyShowerName, KeyShowerRadiantOffset, KeyShowerPathLength, KeyShowerPathRaDec, KeyShowerLikelihood}
	case NamespaceSatellite:
		return []string{KeySatelliteName, KeySatelliteNoradID, KeySatelliteClockOffset, KeySatelliteAngularOffset,
			KeySatellitePathLength, KeySatellitePathRaDec}
	case NamespaceFrameDrop:
		return []string{KeyFrameDropList}
	case NamespaceOrientation:
		return []string{KeyOrientationAltitude, KeyOrientationAzimuth, KeyOrientationTilt, KeyOrientationRoll,
			KeyOrientationRA, KeyOrientationDec, KeyOrientationAngWidth, KeyOrientationAngHeight,
			KeyOrientationUncertainty, KeyOrientationFitQuality, KeyCalibrationBarrel, KeyCalibrationChiSquared,
			KeyCalibrationPointCount, KeyCalibrationResidualList}
	case NamespaceTriangulation:
		return []string{KeyTriangulationSpeed, KeyTriangulationGeocentreSpeed, KeyTriangulationObserverSpeed,
			KeyTriangulationGeocentreHeading, KeyTriangulationObserverHeading, KeyTriangulationMeanAltitude,
			KeyTriangulationMaxAngularOffset, KeyTriangulationMaxBaseline, KeyTriangulationRadiantDirection,
			KeyTriangulationSightLineCount, KeyTriangulationPath, KeyTriangulationSamples, KeyTriangulationStatus}
	default:
		return nil
	}
}
