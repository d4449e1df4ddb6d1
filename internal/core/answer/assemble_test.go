package answer

import (
	"testing"

	"github.com/google/uuid"
	"github.com/jinford/textbook-rag/internal/core/curriculum"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractLines(t *testing.T) {
	chunks := []*curriculum.Chunk{
		{Content: "الفصل الاول. الحركه في خط مستقيم تعني تغير الموضع. 12 - 13. الجسم الساكن لا يغير موضعه ابدا"},
		{Content: "الحركه في خط مستقيم تعني تغير الموضع. ومن امثله الحركه سقوط الاجسام نحو الارض"},
		{Content: "هذه الفقره لا تحتوي على الكلمه المطلوبه. والسطر الثاني ايضا طويل بما يكفي. والسطر الثالث طويل ايضا بما يكفي"},
	}

	lines := ExtractLines(chunks, []string{"الحركه"})

	assert.Equal(t, []string{
		"الحركه في خط مستقيم تعني تغير الموضع",
		"ومن امثله الحركه سقوط الاجسام نحو الارض",
		"هذه الفقره لا تحتوي على الكلمه المطلوبه",
		"والسطر الثاني ايضا طويل بما يكفي",
	}, lines)
}

func TestExtractLines_CapsTotal(t *testing.T) {
	var chunks []*curriculum.Chunk
	for i := 0; i < 4; i++ {
		chunks = append(chunks, &curriculum.Chunk{
			Content: "الطاقه الحركيه الاولى للجسم." + " الطاقه الحركيه الثانيه للجسم " + string(rune('a'+i)),
		})
	}

	lines := ExtractLines(chunks, []string{"الطاقه"})
	assert.Len(t, lines, MaxBodyLines)
	assert.Equal(t, "الطاقه الحركيه الاولى للجسم", lines[0])
}

func TestIsNoiseLine(t *testing.T) {
	assert.True(t, isNoiseLine("قصير"))
	assert.True(t, isNoiseLine("12 - 13 -- 14 ... ..... ----"))
	assert.True(t, isNoiseLine("========================"))
	assert.False(t, isNoiseLine("الحركه هي تغير موضع الجسم"))
}

func TestFormatAndParseReferences(t *testing.T) {
	citations := []string{
		"فيزياء | الوحدة الأولى / الحركة | ص10 (PDF p3)",
		"فيزياء | الوحدة الأولى / الحركة | PDF p4",
	}
	answer := FormatAnswer([]string{"الحركه هي تغير موضع الجسم"}, citations)

	assert.Contains(t, answer, AnswerHeader)
	assert.Contains(t, answer, ReferencesMarker)
	assert.Equal(t, citations, ParseReferences(answer))
	assert.Equal(t, citations, ParseReferences(WithWatermark(answer, "User: @ali / id: 7")))
	assert.True(t, hasReferences(answer, citations))
	assert.False(t, hasReferences("بدون مراجع", citations))
	assert.Nil(t, ParseReferences("بدون مراجع"))
}

func TestWithWatermark(t *testing.T) {
	assert.Equal(t, "answer", WithWatermark("answer", "  "))
	assert.Equal(t, "answer\n\nUser: @ali / id: 7", WithWatermark("answer", "User: @ali / id: 7"))
}

func TestCacheKey(t *testing.T) {
	subjectID := uuid.New()
	base := KeyParams{
		Operation:      OperationExplain,
		SubjectID:      subjectID,
		PageRange:      mo.None[curriculum.PageRange](),
		Question:       "الحركة",
		EmbeddingMode:  DefaultEmbeddingMode,
		ContentVersion: 1,
	}

	key := CacheKey(base)
	assert.Len(t, key, 64)
	assert.Equal(t, key, CacheKey(base))

	variants := []func(p *KeyParams){
		func(p *KeyParams) { p.Operation = OperationRetrieve },
		func(p *KeyParams) { p.ContentVersion = 2 },
		func(p *KeyParams) { p.PageRange = mo.Some(curriculum.PageRange{Start: 0, End: 4}) },
		func(p *KeyParams) { p.Question = "السرعة" },
		func(p *KeyParams) { p.EmbeddingMode = "openai" },
		func(p *KeyParams) { p.SubjectID = uuid.New() },
	}
	for _, mutate := range variants {
		p := base
		mutate(&p)
		assert.NotEqual(t, key, CacheKey(p))
	}
}

func TestChunkIDsRoundTrip(t *testing.T) {
	chunks := []*curriculum.Chunk{{ID: uuid.New()}, {ID: uuid.New()}}
	ids, err := DecodeChunkIDs(EncodeChunkIDs(chunks) + ",")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{chunks[0].ID, chunks[1].ID}, ids)

	_, err = DecodeChunkIDs("not-a-uuid")
	assert.Error(t, err)
}
