package providers

import (
	"fmt"
	"strings"
)

// DefaultPose is used when an item has no pose/action guidance
const DefaultPose = "Expressing the emotion naturally"

// DefaultTopic replaces an empty suggestion context
const DefaultTopic = "日常で使いやすいもの"

// CaptionSystemInstruction casts the text model as a sticker planner
const CaptionSystemInstruction = "あなたは人気LINEスタンプの企画担当者です。ユーザーの要望に合わせて、短くて使いやすいスタンプの文言をJSON形式の配列で提案してください。余計な解説は含めずJSONのみを出力してください。"

// CaptionItemDescription documents the array items of the caption schema
const CaptionItemDescription = "スタンプに使用する短いフレーズ（10文字以内）"

// BuildCaptionPrompt asks for exactly count short phrases as a JSON array
func BuildCaptionPrompt(count int, topic string) string {
	if strings.TrimSpace(topic) == "" {
		topic = DefaultTopic
	}
	return fmt.Sprintf(`LINEスタンプのメッセージ案を%d個考えてください。
文脈・設定: %s
条件:
- 10文字以内の短いフレーズ
- 敬語、タメ口、感情表現をバランスよく
- JSON配列形式で出力してください。例: ["ありがとう", "了解", "おつかれさま"]
- 余計な説明は不要です。`, count, topic)
}

const referenceConsistency = `**CHARACTER IDENTITY & CONTINUITY**
- The provided reference image defines the character's "Anchor Features": specific hair flow/volume, eye shape characteristics, and overall facial structure.
- You MUST treat this character as the recurring protagonist of a professional sticker series.
- Maintain the character's core identity (same person) while allowing dynamic changes in facial expressions (laughing, crying, apologizing) and varied body poses.
- **Crucial**: The artistic medium, brush stroke quality, and lighting style must be identical to the reference image to ensure "Visual Cohesion" across the entire set.`

const inventedConsistency = `**CHARACTER CONSISTENCY**
- Create a distinct, memorable character design.
- Use this same character design consistently for every sticker in the set, ensuring they all feel like they belong to the same visual brand.`

// ImageSpec holds the fixed output constraints embedded in the prompt
type ImageSpec struct {
	AspectRatio string
	ImageSize   string
}

// BuildStampPrompt renders the single instruction sent with each image request
func BuildStampPrompt(req ImageRequest, spec ImageSpec) string {
	pose := strings.TrimSpace(req.ExtraPrompt)
	if pose == "" {
		pose = DefaultPose
	}

	consistency := inventedConsistency
	if len(req.References) > 0 {
		consistency = referenceConsistency
	}

	var b strings.Builder
	b.WriteString("Task: Design a professional LINE Messenger Sticker (Stamp).\n\n")

	b.WriteString("**Character Performance**\n")
	fmt.Fprintf(&b, "- Message: %q\n", req.Caption)
	fmt.Fprintf(&b, "- Pose/Action: %s.\n", pose)
	fmt.Fprintf(&b, "- Ensure the character's expression is vivid, emotive, and matches the message %q.\n\n", req.Caption)

	b.WriteString(consistency)
	b.WriteString("\n\n")

	b.WriteString("**Style Specification**\n")
	fmt.Fprintf(&b, "- Art Style: %s\n", req.Style.Descriptor)
	b.WriteString("- Aesthetic: High-end sticker illustration. Clean, professional, and visually appealing.\n\n")

	b.WriteString("**Graphic Integration**\n")
	fmt.Fprintf(&b, "- Effectively include the text %q within the image using stylized, readable Japanese typography.\n", req.Caption)
	b.WriteString("- The text should feel like a natural part of the sticker composition (e.g., using speech bubbles or decorative lettering).\n\n")

	b.WriteString("**Technical Specs**\n")
	b.WriteString("- Background: SOLID PURE WHITE (#FFFFFF) ONLY.\n")
	b.WriteString("- No background elements, no floor shadows, no scenery.\n")
	b.WriteString(`- Die-cut: Add a crisp, thick white border around the character silhouette for a "sticker" look.` + "\n")
	b.WriteString("- Composition: Centered, full or upper-body as appropriate for the emotion.\n")
	if spec.AspectRatio != "" {
		fmt.Fprintf(&b, "- Aspect ratio: %s.\n", spec.AspectRatio)
	}
	if spec.ImageSize != "" {
		fmt.Fprintf(&b, "- Resolution tier: %s.\n", spec.ImageSize)
	}

	return b.String()
}

// JoinPrompt combines the session-wide prompt with an item's modifier
func JoinPrompt(shared, item string) string {
	return strings.TrimSpace(shared + " " + item)
}
