package biometric

// DetectMIMEType exposes detectMIMEType to the external biometric_test package.
var DetectMIMEType = detectMIMEType
