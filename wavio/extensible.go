package wavio

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

const formatExtensible = 0xFFFE

// KSDATAFORMAT_SUBTYPE_PCM, KSDATAFORMAT_SUBTYPE_IEEE_FLOAT의 공통 꼬리.
var guidTail = [14]byte{0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71}

// subFormat은 WAVE_FORMAT_EXTENSIBLE fmt 청크의 GUID에서 실제 형식 코드(1 또는 3)를 꺼낸다.
// go-audio/wav 디코더는 fmt 청크의 확장 영역을 버리므로 헤더를 직접 훑는다.
func subFormat(r io.ReadSeeker) (uint16, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, errors.Wrap(err, "rewind wav reader failed")
	}

	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return 0, errors.Wrap(err, "read RIFF header failed")
	}
	if string(riff[:4]) != "RIFF" || string(riff[8:]) != "WAVE" {
		return 0, errors.New("not a RIFF/WAVE file")
	}

	for {
		var id [4]byte
		if _, err := io.ReadFull(r, id[:]); err != nil {
			return 0, errors.Wrap(err, "fmt chunk not found")
		}
		var size uint32
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return 0, errors.Wrap(err, "read chunk size failed")
		}
		if string(id[:]) != "fmt " {
			if _, err := r.Seek(int64(size)+int64(size%2), io.SeekCurrent); err != nil {
				return 0, errors.Wrap(err, "skip chunk failed")
			}
			continue
		}

		if size < 40 || size > 1<<10 {
			return 0, errors.Errorf("invalid extensible fmt chunk size: %d bytes", size)
		}
		buf := make([]byte, size)
		if _, err := io.ReadFull(r, buf); err != nil {
			return 0, errors.Wrap(err, "read fmt chunk failed")
		}
		// cbSize(2) + wValidBitsPerSample(2) + dwChannelMask(4) 다음이 GUID다.
		guid := buf[24:40]
		if [14]byte(guid[2:]) != guidTail {
			return 0, errors.Errorf("unsupported wav sub format: %x", guid)
		}
		return binary.LittleEndian.Uint16(guid[:2]), nil
	}
}
