package domain

// BucketKey names the two logical streams a session carries.
type BucketKey string

const (
	BucketCamera BucketKey = "camera"
	BucketScreen BucketKey = "screen"
)

// Side distinguishes locally captured media from media received over the
// transport.
type Side string

const (
	SideLocal  Side = "local"
	SideRemote Side = "remote"
)
