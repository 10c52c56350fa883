package recorder

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/zintix-labs/resamplab/corefmt"
	"github.com/zintix-labs/resamplab/errs"
)

// maxTraceFrame 單一世代 frame 的上限（約可容納 MaxParticles 個索引的 JSON）
const maxTraceFrame = 256 << 20

// TraceGeneration trace 檔中的一個世代
type TraceGeneration struct {
	Worker  int   `json:"worker"`
	Trial   int   `json:"trial"`
	Draws   int   `json:"draws"`
	Indices []int `json:"indices"`
}

// TraceWriter 將世代以 zstd 壓縮的 blob frame 串流寫出。
//
// 每個 frame 的 payload 是一個 TraceGeneration 的 JSON。非執行緒安全。
type TraceWriter struct {
	zw *zstd.Encoder
}

func NewTraceWriter(w io.Writer) (*TraceWriter, error) {
	zw, err := zstd.NewWriter(w,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, errs.Wrap(err, "create trace writer failed")
	}
	return &TraceWriter{zw: zw}, nil
}

func (tw *TraceWriter) WriteGeneration(g *TraceGeneration) error {
	b, err := json.Marshal(g)
	if err != nil {
		return errs.Wrap(err, "marshal trace generation failed")
	}
	return corefmt.WriteBlobFrame(tw.zw, b)
}

// Close 寫出 zstd 結尾；不會關閉底層的 io.Writer。
func (tw *TraceWriter) Close() error {
	if err := tw.zw.Close(); err != nil {
		return errs.Wrap(err, "close trace writer failed")
	}
	return nil
}

// TraceReader 讀取 TraceWriter 寫出的串流
type TraceReader struct {
	zr *zstd.Decoder
	br *bufio.Reader
}

func NewTraceReader(r io.Reader) (*TraceReader, error) {
	zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, errs.Wrap(err, "create trace reader failed")
	}
	return &TraceReader{zr: zr, br: bufio.NewReader(zr)}, nil
}

// Next 讀取下一個世代；串流結束回傳 io.EOF。
func (tr *TraceReader) Next() (*TraceGeneration, error) {
	b, err := corefmt.ReadBlobFrame(tr.br, maxTraceFrame)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	g := new(TraceGeneration)
	if err := json.Unmarshal(b, g); err != nil {
		return nil, errs.Wrap(err, "unmarshal trace generation failed")
	}
	return g, nil
}

func (tr *TraceReader) Close() {
	tr.zr.Close()
}
