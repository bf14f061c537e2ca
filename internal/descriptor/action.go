package descriptor

import (
	"bytes"
	"fmt"
	"time"
)

// ActionFileName is the action file name tools look up through IN_MODEL.
const ActionFileName = "ConvertToHDF5Action.dat"

// ExtractAction selects a single instant and the given fields of src.
func ExtractAction(src, dst string, instant time.Time, fields []string) []byte {
	var buf bytes.Buffer
	buf.Write(Format([]Entry{
		{Key: "FILENAME", Value: src},
		{Key: "OUTPUTFILENAME", Value: dst},
		{Key: "START_TIME", Value: instant.Format(TimeLayout)},
		{Key: "END_TIME", Value: instant.Format(TimeLayout)},
	}))
	buf.WriteByte('\n')
	for _, f := range fields {
		fmt.Fprintf(&buf, "<BeginParameter>\n")
		buf.Write(Format([]Entry{
			{Key: "PROPERTY", Value: f},
			{Key: "HDF_GROUP", Value: "/Results/" + f},
		}))
		fmt.Fprintf(&buf, "<EndParameter>\n\n")
	}
	return buf.Bytes()
}

// GlueAction merges same-instant files into dst.
func GlueAction(dst string, inputs ...string) []byte {
	var buf bytes.Buffer
	buf.WriteString("<begin_file>\n")
	buf.Write(Format([]Entry{
		{Key: "ACTION", Value: "GLUES HDF5 FILES"},
		{Key: "GLUE_IN_TIME", Value: "0"},
		{Key: "3D_FILE", Value: "1"},
		{Key: "3D_OPEN", Value: "1"},
		{Key: "OUTPUTFILENAME", Value: dst},
	}))
	buf.WriteString("\n<<begin_list>>\n")
	for _, in := range inputs {
		buf.WriteString(in)
		buf.WriteByte('\n')
	}
	buf.WriteString("<<end_list>>\n<end_file>\n")
	return buf.Bytes()
}
