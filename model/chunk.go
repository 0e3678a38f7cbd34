package model

type ChunkHeader struct {
	Length    uint32
	VocabSize uint32
	Count     uint32
}

type ChunkOverview struct {
	Filename string
	Start    uint32
	End      uint32
}
