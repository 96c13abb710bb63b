package s3

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
)

// DefaultRegion is used when the media bucket's region is not configured.
const DefaultRegion = "us-east-1"

var bucketName = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

// Config points the storage layer at the media bucket: uploads arrive under
// input/ and analysis results are written back under output/.
type Config struct {
	Bucket string `mapstructure:"bucket" json:"bucket"`
	Region string `mapstructure:"region" json:"region"`

	// Endpoint replaces the AWS endpoint, for MinIO or LocalStack in
	// development. It is normally paired with ForcePathStyle.
	Endpoint       string `mapstructure:"endpoint" json:"endpoint"`
	ForcePathStyle bool   `mapstructure:"force_path_style" json:"force_path_style"`

	// Static credentials. Leave both empty to use the default AWS chain
	// (environment, shared config, instance role).
	AccessKey string `mapstructure:"access_key" json:"access_key"`
	SecretKey string `mapstructure:"secret_key" json:"secret_key"`
}

func (c *Config) ApplyDefaults() {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	switch {
	case c.Bucket == "":
		errs = append(errs, errors.New("bucket is required"))
	case !bucketName.MatchString(c.Bucket):
		errs = append(errs, fmt.Errorf("bucket %q is not a valid bucket name", c.Bucket))
	}
	if c.Region == "" {
		errs = append(errs, errors.New("region is required"))
	}
	if (c.AccessKey == "") != (c.SecretKey == "") {
		errs = append(errs, errors.New("access_key and secret_key must be set together"))
	}
	if c.Endpoint != "" {
		if u, err := url.Parse(c.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("endpoint %q must be an absolute URL", c.Endpoint))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("s3: invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// GetBucket names the media bucket in the startup summary.
func (c *Config) GetBucket() string { return c.Bucket }
