package api

import (
	"io"
	"mime/multipart"
	"strconv"

	"github.com/pkg/errors"

	"github.com/wavebird/concord/discord"
	"github.com/wavebird/concord/utils/httputil"
	"github.com/wavebird/concord/utils/json"
)

// ErrEmptyMessage is returned if the message to send contains neither
// content nor files.
var ErrEmptyMessage = errors.New("message is empty")

// SendMessageFile is a file to upload along with a message.
type SendMessageFile struct {
	Name   string
	Reader io.Reader
}

// SendMessageData is the full argument set for SendMessageComplex.
type SendMessageData struct {
	Content string `json:"content,omitempty"`
	Nonce   string `json:"nonce,omitempty"`
	TTS     bool   `json:"tts,omitempty"`

	Files []SendMessageFile `json:"-"`
}

func (data *SendMessageData) writeMultipart(body *multipart.Writer) error {
	defer body.Close()

	if data.Content != "" {
		if err := body.WriteField("content", data.Content); err != nil {
			return errors.Wrap(err, "failed to write content")
		}
	}
	if data.Nonce != "" {
		if err := body.WriteField("nonce", data.Nonce); err != nil {
			return errors.Wrap(err, "failed to write nonce")
		}
	}
	if data.TTS {
		if err := body.WriteField("tts", "true"); err != nil {
			return errors.Wrap(err, "failed to write tts")
		}
	}

	for i, file := range data.Files {
		w, err := body.CreateFormFile("file"+strconv.Itoa(i), file.Name)
		if err != nil {
			return errors.Wrap(err, "failed to create file "+file.Name)
		}

		if _, err := io.Copy(w, file.Reader); err != nil {
			return errors.Wrap(err, "failed to write file "+file.Name)
		}
	}

	return nil
}

// SendMessageComplex posts a message to the channel. Messages with files
// attached are streamed as multipart bodies; plain messages go out as JSON.
func (c *Client) SendMessageComplex(
	channelID discord.Snowflake, data SendMessageData) (*discord.Message, error) {

	if data.Content == "" && len(data.Files) == 0 {
		return nil, ErrEmptyMessage
	}

	var url = BaseEndpoint + APIPath + "/channels/" + channelID.String() + "/messages"

	if len(data.Files) == 0 {
		var msg *discord.Message
		return msg, c.RequestJSON(&msg, "POST",
			"/channels/"+channelID.String()+"/messages",
			httputil.WithJSONBody(data))
	}

	// File uploads skip the Send dispatcher's body buffering and stream the
	// multipart payload instead, but still pass through OnRequest, so the
	// route limiter and credential are applied as usual.
	resp, err := c.MeanwhileMultipart(data.writeMultipart, "POST", url)
	if err != nil {
		return nil, err
	}

	var body = resp.GetBody()
	defer body.Close()

	var msg *discord.Message
	if err := json.DecodeStream(body, &msg); err != nil {
		return nil, httputil.JSONError{Err: err}
	}

	return msg, nil
}
