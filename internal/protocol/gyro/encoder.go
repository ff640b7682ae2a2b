package gyro

import (
	"encoding/binary"
	"math"
)

func encodeCommand(c Command, delim byte) []byte {
	return []byte{c.Register, c.Argument, delim}
}

func decodeCommand(b []byte) Command {
	return Command{Register: b[0], Argument: b[1]}
}

func encodeResponse(r Response, delim byte) []byte {
	return []byte{r.Register, r.Value, delim}
}

func decodeResponse(b []byte) Response {
	return Response{Register: b[0], Value: b[1]}
}

// encodeDataResponse 按字段声明顺序小端紧凑编码（与原设备的 packed 结构体逐字节一致）
func encodeDataResponse(d DataResponse, delim byte) []byte {
	buf := make([]byte, 0, DataResponseFrameLen)
	buf = append(buf, d.Register)
	buf = binary.LittleEndian.AppendUint16(buf, d.Count)
	buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(d.XRate))
	buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(d.YRate))
	buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(d.ZRate))
	buf = append(buf, delim)
	return buf
}

func decodeDataResponse(b []byte) DataResponse {
	return DataResponse{
		Register: b[0],
		Count:    binary.LittleEndian.Uint16(b[1:3]),
		XRate:    math.Float32frombits(binary.LittleEndian.Uint32(b[3:7])),
		YRate:    math.Float32frombits(binary.LittleEndian.Uint32(b[7:11])),
		ZRate:    math.Float32frombits(binary.LittleEndian.Uint32(b[11:15])),
	}
}
