// Package platform resolves which social platform a submitted URL belongs to
// and downloads its media through a Gateway. The yt-dlp adapter is the only
// production gateway; tests substitute fakes through the interface.
package platform
