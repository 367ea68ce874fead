package minio

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NotFound"}))
	assert.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied"}))
	assert.False(t, isNotFound(errors.New("network down")))
}

func TestStore_Key(t *testing.T) {
	s := NewStore(nil, "bucket", "indexes/")
	assert.Equal(t, "indexes/a.idx", s.key("a.idx"))
	assert.Equal(t, "indexes", s.key(""))
}

func TestDial(t *testing.T) {
	s, err := Dial("localhost:9000", "access", "secret", false, "bucket", "p")
	require.NoError(t, err)
	assert.Equal(t, "bucket", s.bucket)
	assert.Equal(t, "p/x", s.key("x"))

	_, err = Dial("localhost:9000/with/path", "a", "b", false, "bucket", "")
	assert.Error(t, err)
}

func TestObject_OutOfRange(t *testing.T) {
	o := &object{key: "k", size: 10}
	ctx := context.Background()

	n, err := o.ReadAt(ctx, make([]byte, 4), 10)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)

	_, err = o.ReadAt(ctx, make([]byte, 4), -1)
	assert.ErrorIs(t, err, io.EOF)

	n, err = o.ReadAt(ctx, nil, 3)
	assert.Equal(t, 0, n)
	assert.NoError(t, err)

	_, err = o.ReadRange(ctx, 10, 1)
	assert.ErrorIs(t, err, io.EOF)
}

func TestUpload_Lifecycle(t *testing.T) {
	newUpload := func(consume func(io.Reader) error) *upload {
		pr, pw := io.Pipe()
		u := &upload{pw: pw, result: make(chan error, 1)}
		go func() {
			err := consume(pr)
			_ = pr.CloseWithError(err)
			u.result <- err
		}()
		return u
	}

	t.Run("close commits", func(t *testing.T) {
		var got []byte
		u := newUpload(func(r io.Reader) (err error) {
			got, err = io.ReadAll(r)
			return err
		})
		_, err := u.Write([]byte("page"))
		require.NoError(t, err)
		require.NoError(t, u.Sync())
		require.NoError(t, u.Close())
		assert.Equal(t, "page", string(got))
		assert.ErrorIs(t, u.Close(), io.ErrClosedPipe)
	})

	t.Run("abort fails the stream", func(t *testing.T) {
		u := newUpload(func(r io.Reader) error {
			_, err := io.ReadAll(r)
			return err
		})
		require.NoError(t, u.Abort())
		assert.ErrorIs(t, u.err, errUploadAborted)
		assert.ErrorIs(t, u.Close(), io.ErrClosedPipe)
	})

	t.Run("server error surfaces on close", func(t *testing.T) {
		boom := errors.New("quota")
		u := newUpload(func(io.Reader) error { return boom })
		_, _ = u.Write([]byte("x"))
		assert.ErrorIs(t, u.Close(), boom)
	})
}
