package attachment

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	cs "github.com/webtor-io/common-services"
)

const (
	attachmentS3BucketFlag  = "attachment-s3-bucket"
	attachmentPublicURLFlag = "attachment-public-url"
	attachmentPrefixFlag    = "attachment-prefix"
	attachmentMaxWidthFlag  = "attachment-max-width"
)

const jpegQuality = 85

func RegisterFlags(f []cli.Flag) []cli.Flag {
	return append(f,
		cli.StringFlag{
			Name:   attachmentS3BucketFlag,
			Usage:  "s3 bucket for covers",
			EnvVar: "ATTACHMENT_S3_BUCKET",
		},
		cli.StringFlag{
			Name:   attachmentPublicURLFlag,
			Usage:  "public url the bucket is served from",
			EnvVar: "ATTACHMENT_PUBLIC_URL",
		},
		cli.StringFlag{
			Name:   attachmentPrefixFlag,
			Usage:  "key prefix for covers",
			Value:  "covers",
			EnvVar: "ATTACHMENT_PREFIX",
		},
		cli.IntFlag{
			Name:   attachmentMaxWidthFlag,
			Usage:  "covers wider than this are scaled down (0 disables)",
			Value:  0,
			EnvVar: "ATTACHMENT_MAX_WIDTH",
		},
	)
}

// Sink stores attachments in s3 and returns their public urls.
type Sink struct {
	cl        s3iface.S3API
	bucket    string
	publicURL string
	prefix    string
	maxWidth  int
}

func New(c *cli.Context, s3Cl *cs.S3Client) *Sink {
	bucket := c.String(attachmentS3BucketFlag)
	if s3Cl == nil || bucket == "" {
		return nil
	}
	return &Sink{
		cl:        s3Cl.Get(),
		bucket:    bucket,
		publicURL: strings.TrimSuffix(c.String(attachmentPublicURLFlag), "/"),
		prefix:    strings.Trim(c.String(attachmentPrefixFlag), "/"),
		maxWidth:  c.Int(attachmentMaxWidthFlag),
	}
}

func (s *Sink) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func (s *Sink) url(key string) string {
	if s.publicURL == "" {
		return fmt.Sprintf("s3://%v/%v", s.bucket, key)
	}
	return s.publicURL + "/" + key
}

func makeAWSMD5(b []byte) *string {
	h := md5.Sum(b)
	return aws.String(base64.StdEncoding.EncodeToString(h[:]))
}

// prepare checks that data is an image and scales it down when needed.
func (s *Sink) prepare(name string, data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "not an image")
	}
	if s.maxWidth <= 0 || img.Bounds().Dx() <= s.maxWidth {
		return data, nil
	}
	f, err := imaging.FormatFromFilename(name)
	if err != nil {
		log.WithError(err).WithField("name", name).Debug("unknown cover format, keeping original size")
		return data, nil
	}
	resized := imaging.Resize(img, s.maxWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, f, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, errors.Wrap(err, "failed to encode resized image")
	}
	return buf.Bytes(), nil
}

// Upload stores data under name and returns the url it is served from.
func (s *Sink) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if name == "" {
		return "", errors.New("attachment name is empty")
	}
	data, err := s.prepare(name, data)
	if err != nil {
		return "", err
	}
	key := s.key(name)
	_, err = s.cl.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentMD5:  makeAWSMD5(data),
		ContentType: aws.String(http.DetectContentType(data)),
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to put %v", key)
	}
	return s.url(key), nil
}

// Delete removes an attachment previously returned by Upload. Missing objects are ignored.
func (s *Sink) Delete(ctx context.Context, u string) error {
	var key string
	if s.publicURL != "" && strings.HasPrefix(u, s.publicURL+"/") {
		key = strings.TrimPrefix(u, s.publicURL+"/")
	} else if p := fmt.Sprintf("s3://%v/", s.bucket); strings.HasPrefix(u, p) {
		key = strings.TrimPrefix(u, p)
	} else {
		return errors.Errorf("url %v does not belong to bucket %v", u, s.bucket)
	}
	_, err := s.cl.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if awsErr, ok := err.(awserr.Error); ok && awsErr.Code() == s3.ErrCodeNoSuchKey {
			return nil
		}
		return errors.Wrapf(err, "failed to delete %v", key)
	}
	return nil
}
