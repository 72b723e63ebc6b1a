package document

// DefaultTemplate is the document shown on first run and after a reset.
const DefaultTemplate = `# Architect AI: The Visionary Engine

> **Welcome to the future of software design.**

Architect AI is a collaborative intelligence designed to transform abstract ideas into rigorous technical specifications. It operates as a dual-screen environment: a conversational interface on the left and a live, evolving design canvas on the right.

## 🧠 Core Capabilities

### 1. The Architect Mode
Acts as your Product Manager and Lead Engineer. It listens to your high-level vision and instantly structures it into:
- Executive Summaries
- User Stories
- Feature Requirements

### 2. Market Analysis Mode
*Powered by Deep Research & Grounding*
- Identifies competitors and blue-ocean opportunities using **Google Search Grounding**.
- Synthesizes SWOT analyses and business models with real-time data.
- Updates this document with data-driven insights.

### 3. Technical Deep Dive
*Powered by Staff+ Engineering Logic*
- Architectures scalable systems (Microservices, Serverless).
- Generates **Mermaid.js** diagrams for data flow.
- Recommends specific tech stacks based on modern standards.

## 🚀 Advanced Intelligence Features

### 🔍 Deep Research & Grounding
Architect AI leverages **Google Search Grounding** to anchor its responses in reality.
- **Live Web Access**: It doesn't hallucinate; it verifies facts, checks library versions, and finds real competitor pricing.
- **Citation & Verification**: Research findings are cross-referenced before being synthesized into your document.

### ⛓️ Sequential Thinking Mode
For complex problems, the AI engages a **Chain of Thought (CoT)** protocol:
1.  **Analyze**: Deconstructs the user request.
2.  **Reason**: Traces logic paths in an internal monologue (visible in "Thinking Process").
3.  **Execute**: Formulates the optimal solution.
This ensures high-fidelity output for architecture decisions and complex logic.

### 🛠️ Integrated Tool Calling
The system is built on a robust **Function Calling** architecture:
- **Canvas Control**: The AI directly manipulates this document via the ` + "`updateDocument`" + ` tool.
- **External Data**: It calls search tools to fetch external context.
- **UI Suggestion**: It triggers interactive UI chips via ` + "`suggestNextSteps`" + `.

## 🛠 Features

*   **Live Canvas**: Real-time Markdown rendering with syntax highlighting.
*   **Visual Thinking**: Automatic generation of flowcharts and sequence diagrams.
*   **Voice Interface**: Real-time audio streaming for hands-free brainstorming.
*   **Persistence**: Your work is saved locally and persists across sessions.

---

*To begin, simply type your idea in the chat or switch modes to perform deep research.*`
