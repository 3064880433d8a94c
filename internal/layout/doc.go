// Package layout fits translated text into cleaned page regions and draws
// it.
//
// Fitting walks font sizes from Config.StartSize down to Config.MinSize and
// keeps the first size whose greedily wrapped block fits the padded region
// height. When none fits, the minimum-size wrap is drawn anyway and the
// Layout is flagged as overflowing.
//
// Text is sanitized before fitting: typographic punctuation becomes ASCII,
// line breaks become spaces and runes the font cannot render are dropped.
package layout
