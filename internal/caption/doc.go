// Package caption resolves the text posted alongside a media item.
//
// The queue stores captions exactly as they were submitted. Resolution happens
// at publish time: blank captions fall back to the configured default, the text
// is normalized to NFC so composed and decomposed input post identically,
// control characters other than newlines are dropped, and the result is
// truncated on a rune boundary to the platform limit.
package caption
