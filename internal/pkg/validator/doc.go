// Package validator validates request and dependency structs with
// go-playground/validator v10 and reports failures as a field-to-message map
// keyed in snake_case.
//
// Besides the library's built-in tags, two domain tags are registered:
//
//	otpcode        exactly six ASCII digits
//	recoverytoken  43 characters of unpadded URL-safe base64
package validator
